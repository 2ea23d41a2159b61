package loop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func runLoop(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := New()
	var got []int
	for i := 1; i <= 3; i++ {
		l.Post(func() { got = append(got, i) })
	}
	l.Post(l.Quit)

	runLoop(t, l)

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("tasks ran as %v, want [1 2 3]", got)
	}
}

func TestLoop_PostFromTaskRunsLater(t *testing.T) {
	l := New()
	var order []string
	l.Post(func() {
		l.Post(func() {
			order = append(order, "inner")
			l.Quit()
		})
		order = append(order, "outer")
	})

	runLoop(t, l)

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("order = %v, want [outer inner]", order)
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestJob_CallbackRunsOnLoopNotInline(t *testing.T) {
	l := New()
	var got int
	var gotErr error
	calls := 0

	l.Post(func() {
		j := Submit(l, func() (int, error) { return 7, nil })
		j.Then(func(v int, err error) {
			calls++
			got, gotErr = v, err
			l.Quit()
		})
		if calls != 0 {
			t.Error("callback fired synchronously inside Then")
		}
	})

	runLoop(t, l)

	if calls != 1 {
		t.Fatalf("callback fired %d times, want 1", calls)
	}
	if got != 7 || gotErr != nil {
		t.Errorf("callback got (%d, %v), want (7, nil)", got, gotErr)
	}
}

func TestJob_CompletedIsStillAsync(t *testing.T) {
	l := New()
	wantErr := errors.New("boom")
	var steps []string

	l.Post(func() {
		Completed(l, "", wantErr).Then(func(_ string, err error) {
			if !errors.Is(err, wantErr) {
				t.Errorf("err = %v, want %v", err, wantErr)
			}
			steps = append(steps, "callback")
			l.Quit()
		})
		steps = append(steps, "after then")
	})

	runLoop(t, l)

	if len(steps) != 2 || steps[0] != "after then" {
		t.Errorf("steps = %v, want [after then callback]", steps)
	}
}

func TestJob_ThenAfterCompletion(t *testing.T) {
	l := New()
	j := Completed(l, 3, nil)
	var got int

	// Let the completion land before a callback is attached.
	l.Post(func() {
		j.Then(func(v int, _ error) {
			got = v
			l.Quit()
		})
	})

	runLoop(t, l)

	if got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestJob_ThenTwicePanics(t *testing.T) {
	l := New()
	j := Completed(l, 1, nil)
	j.Then(func(int, error) {})

	defer func() {
		if recover() == nil {
			t.Error("second Then did not panic")
		}
	}()
	j.Then(func(int, error) {})
}
