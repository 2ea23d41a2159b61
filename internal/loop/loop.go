// Package loop provides the single-threaded scheduler that every command,
// resolver and queue runs on, plus the Job type used for asynchronous store
// operations whose completions are delivered back onto the loop.
package loop

import (
	"context"
	"sync"
)

// Loop runs posted tasks one at a time, in posting order, on the goroutine
// that called Run. Post may be called from any goroutine.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	quit  bool
	wake  chan struct{}
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn to run on the loop. It never blocks and never runs fn inline.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// Quit makes Run return after the task currently executing, if any.
// Tasks still queued stay queued and run on the next call to Run.
func (l *Loop) Quit() {
	l.mu.Lock()
	l.quit = true
	l.mu.Unlock()
	l.signal()
}

// Run executes tasks until Quit is called or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		fn, quit := l.next()
		if quit {
			return nil
		}
		if fn != nil {
			fn()
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quit {
		l.quit = false
		return nil, true
	}
	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, false
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
