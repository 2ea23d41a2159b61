// Package shell drives commands from an interactive session or a single
// command line, one command at a time, on the event loop.
package shell

import (
	"fmt"
	"io"

	"stash-go/internal/command"
)

// Reporter writes user-facing errors. Inside the interactive shell messages
// are prefixed with "error:" only; in one-shot mode with the app name as well.
type Reporter struct {
	AppName     string
	Interactive bool
	W           io.Writer
}

func (r *Reporter) Error(msg string) {
	if r.Interactive {
		fmt.Fprintf(r.W, "error: %s\n", msg)
		return
	}
	fmt.Fprintf(r.W, "%s: error: %s\n", r.AppName, msg)
}

// Usage prints the usage line of verb, if it is known.
func (r *Reporter) Usage(verb string) {
	d, ok := command.Lookup(verb)
	if !ok {
		return
	}
	if r.Interactive {
		fmt.Fprintf(r.W, "usage: %s\n", d.Usage)
		return
	}
	fmt.Fprintf(r.W, "usage: %s %s\n", r.AppName, d.Usage)
}

// notifier forwards command events to a Reporter and a finish hook.
type notifier struct {
	reporter *Reporter
	finished func(command.Result)
}

func (n *notifier) Error(msg string)             { n.reporter.Error(msg) }
func (n *notifier) Finished(res command.Result) { n.finished(res) }
