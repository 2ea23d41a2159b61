package command

import (
	"bytes"
	"context"
	"testing"
	"time"

	"stash-go/internal/loop"
	"stash-go/internal/testutil"
)

// recorder is a Notifier that stops the loop when the command finishes.
type recorder struct {
	loop    *loop.Loop
	errors  []string
	results []Result
}

func (r *recorder) Error(msg string) { r.errors = append(r.errors, msg) }

func (r *recorder) Finished(res Result) {
	r.results = append(r.results, res)
	r.loop.Post(r.loop.Quit)
}

type fixture struct {
	env   Env
	store *testutil.MockStore
	fs    *testutil.MockFileSystem
	out   *bytes.Buffer
}

func newFixture() *fixture {
	l := loop.New()
	f := &fixture{
		store: testutil.NewMockStore(l),
		fs:    testutil.NewMockFileSystem(),
		out:   &bytes.Buffer{},
	}
	f.env = Env{Loop: l, Store: f.store, FS: f.fs, Out: f.out, IDs: testutil.NewStubIDGenerator()}
	return f
}

// run initializes cmd with args and drives it to completion.
func (f *fixture) run(t *testing.T, cmd Command, args ...string) *recorder {
	t.Helper()
	if err := cmd.Init(args); err != nil {
		t.Fatalf("Init(%q) error = %v", args, err)
	}
	return f.start(t, cmd)
}

func (f *fixture) start(t *testing.T, cmd Command) *recorder {
	t.Helper()
	rec := &recorder{loop: f.env.Loop}
	f.env.Loop.Post(func() { cmd.Start(rec) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.env.Loop.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rec.results) != 1 {
		t.Fatalf("Finished called %d times, want 1", len(rec.results))
	}
	if cmd.State() != Finished {
		t.Errorf("State() = %v, want Finished", cmd.State())
	}
	return rec
}

func (r *recorder) exitCode() int { return r.results[0].ExitCode }
