// Package workqueue drains an ordered list of units one at a time on the
// event loop. A failing unit is recorded and the queue moves on.
package workqueue

import (
	"stash-go/internal/loop"
	"stash-go/internal/stash"
)

// Status is the lifecycle of a single unit.
type Status int

const (
	Pending Status = iota
	InFlight
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in flight"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Unit is one entry of the queue together with its outcome.
type Unit[T any] struct {
	Value  T
	Status Status
	Err    error
}

// Report summarizes a drained queue.
type Report[T any] struct {
	Units []Unit[T]
}

// Total returns the number of units processed.
func (r Report[T]) Total() int { return len(r.Units) }

// Failures returns the units that failed, in input order.
func (r Report[T]) Failures() []Unit[T] {
	var out []Unit[T]
	for _, u := range r.Units {
		if u.Status == Failed {
			out = append(out, u)
		}
	}
	return out
}

// Succeeded returns the number of units that completed without error.
func (r Report[T]) Succeeded() int {
	n := 0
	for _, u := range r.Units {
		if u.Status == Done {
			n++
		}
	}
	return n
}

// Action processes a single unit and must call done exactly once, either
// synchronously or from a later job callback. Extra calls are ignored.
type Action[T any] func(value T, done func(error))

// Queue processes units strictly in input order with at most one in flight.
type Queue[T any] struct {
	loop      *loop.Loop
	units     []Unit[T]
	next      int
	started   bool
	action    Action[T]
	onAllDone func(Report[T])
}

// New creates a queue over values. The slice is copied.
func New[T any](l *loop.Loop, values []T) *Queue[T] {
	units := make([]Unit[T], len(values))
	for i, v := range values {
		units[i] = Unit[T]{Value: v}
	}
	return &Queue[T]{loop: l, units: units}
}

// Len returns the number of units in the queue.
func (q *Queue[T]) Len() int { return len(q.units) }

// Start begins draining. The first unit is started synchronously; every later
// advance is posted to the loop so that units failing synchronously do not
// nest calls. An empty queue calls onAllDone before Start returns.
// Calling Start more than once has no effect.
func (q *Queue[T]) Start(action Action[T], onAllDone func(Report[T])) {
	if q.started {
		return
	}
	q.started = true
	q.action = action
	q.onAllDone = onAllDone
	q.advance()
}

func (q *Queue[T]) advance() {
	if q.next >= len(q.units) {
		q.onAllDone(Report[T]{Units: q.units})
		return
	}

	i := q.next
	q.next++
	q.units[i].Status = InFlight

	called := false
	q.action(q.units[i].Value, func(err error) {
		if called {
			return
		}
		called = true
		if err != nil {
			q.units[i].Status = Failed
			q.units[i].Err = &stash.Error{Kind: stash.PerUnitFailure, Err: err}
		} else {
			q.units[i].Status = Done
		}
		q.loop.Post(q.advance)
	})
}
