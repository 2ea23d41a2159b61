package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"stash-go/internal/command"
	"stash-go/internal/loop"
	"stash-go/internal/stash"
)

// Shell reads command lines and runs them one after another. The next line
// is read only after the running command finished.
type Shell struct {
	loop     *loop.Loop
	factory  CommandFactory
	in       *bufio.Reader
	out      io.Writer
	reporter *Reporter
	prompt   string
	onFinish FinishHook
	logger   stash.Logger

	readErr error
}

// Options configures optional shell behavior.
type Options struct {
	// Prompt is printed before each line; empty disables it.
	Prompt   string
	OnFinish FinishHook
	Logger   stash.Logger
}

func New(l *loop.Loop, f CommandFactory, in io.Reader, out io.Writer, r *Reporter, opts Options) *Shell {
	if opts.Logger == nil {
		opts.Logger = stash.NewNopLogger()
	}
	return &Shell{
		loop:     l,
		factory:  f,
		in:       bufio.NewReader(in),
		out:      out,
		reporter: r,
		prompt:   opts.Prompt,
		onFinish: opts.OnFinish,
		logger:   opts.Logger,
	}
}

// Run processes lines until quit, exit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.loop.Post(s.readNext)
	if err := s.loop.Run(ctx); err != nil {
		return err
	}
	return s.readErr
}

// readNext reads one line off the loop so that pending jobs keep flowing.
func (s *Shell) readNext() {
	if s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
	go func() {
		line, err := s.in.ReadString('\n')
		s.loop.Post(func() { s.handleLine(line, err) })
	}()
}

func (s *Shell) handleLine(line string, err error) {
	if err != nil && line == "" {
		if !errors.Is(err, io.EOF) {
			s.readErr = fmt.Errorf("reading input: %w", err)
		}
		if s.prompt != "" {
			fmt.Fprintln(s.out)
		}
		s.loop.Quit()
		return
	}

	args := Tokenize(strings.TrimRight(line, "\r\n"))
	if len(args) == 0 {
		s.readNext()
		return
	}
	if args[0] == "quit" || args[0] == "exit" {
		s.loop.Quit()
		return
	}

	cmd, err := s.factory.New(args[0])
	if err != nil {
		s.reporter.Error(err.Error())
		s.readNext()
		return
	}
	if err := cmd.Init(args[1:]); err != nil {
		s.reporter.Error(err.Error())
		s.reporter.Usage(args[0])
		s.readNext()
		return
	}

	verb := args[0]
	s.loop.Post(func() {
		cmd.Start(&notifier{reporter: s.reporter, finished: func(res command.Result) {
			s.finished(verb, res)
		}})
	})
}

func (s *Shell) finished(verb string, res command.Result) {
	s.logger.Info("command finished", "command", verb, "exit_code", res.ExitCode)
	if s.onFinish != nil {
		s.onFinish(verb, res)
	}
	s.loop.Post(s.readNext)
}
