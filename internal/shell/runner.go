package shell

import (
	"context"
	"fmt"

	"stash-go/internal/command"
	"stash-go/internal/loop"
	"stash-go/internal/stash"
)

// CommandFactory creates a fresh command for a verb. *command.Factory is
// the production implementation.
type CommandFactory interface {
	New(name string) (command.Command, error)
}

// FinishHook is told about every command that ran to completion.
type FinishHook func(verb string, res command.Result)

// Runner executes exactly one command and returns its exit code.
type Runner struct {
	loop     *loop.Loop
	factory  CommandFactory
	reporter *Reporter
	onFinish FinishHook
	logger   stash.Logger
}

func NewRunner(l *loop.Loop, f CommandFactory, r *Reporter, onFinish FinishHook, logger stash.Logger) *Runner {
	if logger == nil {
		logger = stash.NewNopLogger()
	}
	return &Runner{loop: l, factory: f, reporter: r, onFinish: onFinish, logger: logger}
}

// Run initializes and starts the command named by args[0] and blocks until it finishes.
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		r.reporter.Error("no command given (try \"help\")")
		return command.ExitInvalidUsage
	}

	cmd, err := r.factory.New(args[0])
	if err != nil {
		r.reporter.Error(err.Error())
		return command.ExitInvalidUsage
	}
	if err := cmd.Init(args[1:]); err != nil {
		r.reporter.Error(err.Error())
		r.reporter.Usage(args[0])
		return command.ExitInvalidUsage
	}

	var res command.Result
	r.loop.Post(func() {
		cmd.Start(&notifier{reporter: r.reporter, finished: func(got command.Result) {
			res = got
			r.loop.Quit()
		}})
	})

	if err := r.loop.Run(ctx); err != nil {
		r.reporter.Error(fmt.Sprintf("%s interrupted: %v", args[0], err))
		return command.ExitFailure
	}

	r.logger.Info("command finished", "command", args[0], "exit_code", res.ExitCode)
	if r.onFinish != nil {
		r.onFinish(args[0], res)
	}
	return res.ExitCode
}
