package app

import "stash-go/internal/command"

// Operation tracks one process run: how many commands it executed and the
// worst outcome among them. It is logged when the app closes.
type Operation struct {
	ID       string
	Mode     string // "run" or "shell"
	Commands int
	Failed   int
	Status   string // "success", "partial" or "error"
}

// NewOperation creates an operation with no commands recorded yet.
func NewOperation(id, mode string) *Operation {
	return &Operation{
		ID:     id,
		Mode:   mode,
		Status: "success",
	}
}

// Record folds one finished command into the operation. The status only
// ever gets worse: success < partial < error.
func (op *Operation) Record(exitCode int) {
	op.Commands++
	switch exitCode {
	case command.ExitOK:
	case command.ExitPartial:
		op.Failed++
		if op.Status == "success" {
			op.Status = "partial"
		}
	default:
		op.Failed++
		op.Status = "error"
	}
}

// LogArgs returns the operation as slog key/value pairs.
func (op *Operation) LogArgs() []any {
	return []any{"mode", op.Mode, "commands", op.Commands, "failed", op.Failed, "status", op.Status}
}
