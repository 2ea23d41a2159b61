// Package command implements the verbs of the stash client. Each command is
// a small state machine driven by job callbacks on the event loop.
package command

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"stash-go/internal/loop"
	"stash-go/internal/resolve"
	"stash-go/internal/stash"
)

// Exit codes reported in Result.ExitCode.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidUsage = 2
	ExitPartial      = 3
)

// State is the lifecycle of a command.
type State int

const (
	Created State = iota
	Initialized
	Running
	Finished
)

// Result is produced exactly once when a command finishes.
type Result struct {
	ExitCode int
	Errors   []string
}

// Notifier receives the output events of a running command: zero or more
// errors followed by exactly one Finished.
type Notifier interface {
	Error(msg string)
	Finished(res Result)
}

// Command is one verb. Init validates arguments without touching the store;
// Start runs the command and reports through the notifier.
type Command interface {
	Name() string
	State() State
	Init(args []string) error
	Start(n Notifier)
}

// Env carries the collaborators shared by all commands.
type Env struct {
	Loop   *loop.Loop
	Store  stash.Store
	FS     stash.FileSystem
	Out    io.Writer
	Logger stash.Logger
	IDs    stash.IDGenerator
}

// base holds the state shared by every command implementation.
type base struct {
	env    Env
	name   string
	state  State
	n      Notifier
	errors []string
}

func newBase(env Env, name string) base {
	if env.Logger == nil {
		env.Logger = stash.NewNopLogger()
	}
	if env.IDs == nil {
		env.IDs = stash.UUIDGenerator{}
	}
	if env.Out == nil {
		env.Out = io.Discard
	}
	return base{env: env, name: name}
}

func (b *base) Name() string     { return b.name }
func (b *base) State() State     { return b.state }
func (b *base) markInitialized() { b.state = Initialized }

// begin moves the command to Running. A command that was never successfully
// initialized finishes immediately with ExitInvalidUsage.
func (b *base) begin(n Notifier) bool {
	b.n = n
	if b.state != Initialized {
		b.report(fmt.Sprintf("%s: command not initialized", b.name))
		b.finish(ExitInvalidUsage)
		return false
	}
	b.state = Running
	b.env.Logger.Debug("command started", "command", b.name)
	return true
}

func (b *base) report(msg string) {
	b.errors = append(b.errors, msg)
	b.env.Logger.Warn("command error", "command", b.name, "error", msg)
	b.n.Error(msg)
}

// unitFailed reports a per-unit failure and hands it to the queue. The
// message is shown as formatted; the queue gets it as a plain error value.
func (b *base) unitFailed(done func(error), format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.report(msg)
	done(fmt.Errorf("%s: unit failed: %s", b.name, msg))
}

// fail reports err and finishes with ExitFailure.
func (b *base) fail(err error) {
	b.report(err.Error())
	b.finish(ExitFailure)
}

// failf is fail for a message formatted for the user.
func (b *base) failf(format string, args ...any) {
	b.report(fmt.Sprintf(format, args...))
	b.finish(ExitFailure)
}

func (b *base) finish(code int) {
	if b.state == Finished {
		return
	}
	b.state = Finished
	b.env.Logger.Debug("command finished", "command", b.name, "exit_code", code)
	b.n.Finished(Result{ExitCode: code, Errors: b.errors})
}

// exitCode maps a unit tally to the three-way outcome.
func exitCode(total, failed int) int {
	switch {
	case failed == 0:
		return ExitOK
	case failed >= total:
		return ExitFailure
	default:
		return ExitPartial
	}
}

// target is a command argument naming a collection or item.
type target struct {
	raw      string
	resolver *resolve.Resolver
	direct   stash.Handle
}

// parseTarget accepts a path or stash URL, or a bare collection id when allowDirect is set.
func (b *base) parseTarget(arg string, allowDirect bool) (*target, error) {
	r := resolve.New(b.env.Loop, b.env.Store, arg)
	if r.IsPath() {
		return &target{raw: arg, resolver: r}, nil
	}
	if allowDirect {
		if c, ok := stash.ParseCollectionID(arg); ok {
			return &target{raw: arg, direct: c}, nil
		}
		return nil, stash.Errorf(stash.InvalidUsage, "%s: %q is neither a path nor a collection id", b.name, arg)
	}
	return nil, stash.Errorf(stash.InvalidUsage, "%s: %q must be a path or a stash URL", b.name, arg)
}

// resolveTarget resolves t. Direct references complete through the loop too.
func (b *base) resolveTarget(t *target, done func(resolve.Result, error)) {
	if t.direct != nil {
		b.env.Loop.Post(func() { done(resolve.Result{Handle: t.direct}, nil) })
		return
	}
	t.resolver.Start(done)
}

// resolveCollection resolves t and calls next with the collection. On any
// failure the command reports it and finishes with ExitFailure.
func (b *base) resolveCollection(t *target, next func(stash.Collection)) {
	b.resolveTarget(t, func(res resolve.Result, err error) {
		if err != nil {
			b.fail(fmt.Errorf("cannot resolve %s: %w", t.raw, err))
			return
		}
		c, err := resolve.RequireCollection(t.raw, res)
		if err != nil {
			b.fail(err)
			return
		}
		next(c)
	})
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseFlags parses args and returns the positional arguments.
func parseFlags(fs *pflag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, stash.Errorf(stash.InvalidUsage, "%s: %v", fs.Name(), err)
	}
	return fs.Args(), nil
}
