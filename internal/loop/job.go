package loop

import "sync"

// Job is a unit of asynchronous work with a single completion callback.
// The callback always runs on the loop, never inside Submit or Then.
// Jobs cannot be cancelled once submitted.
type Job[T any] struct {
	loop *Loop

	mu       sync.Mutex
	done     bool
	attached bool
	value    T
	err      error
	callback func(T, error)
}

// Submit runs fn on its own goroutine and delivers the result to the loop.
func Submit[T any](l *Loop, fn func() (T, error)) *Job[T] {
	j := &Job[T]{loop: l}
	go func() {
		v, err := fn()
		j.complete(v, err)
	}()
	return j
}

// Completed returns a job whose result is already known. The callback is
// still delivered through the loop.
func Completed[T any](l *Loop, v T, err error) *Job[T] {
	j := &Job[T]{loop: l}
	j.complete(v, err)
	return j
}

// Then registers the completion callback. It may be called once; later calls panic.
func (j *Job[T]) Then(cb func(T, error)) {
	j.mu.Lock()
	if j.attached {
		j.mu.Unlock()
		panic("loop: Then called twice on the same job")
	}
	j.attached = true
	if !j.done {
		j.callback = cb
		j.mu.Unlock()
		return
	}
	v, err := j.value, j.err
	j.mu.Unlock()
	j.loop.Post(func() { cb(v, err) })
}

func (j *Job[T]) complete(v T, err error) {
	j.loop.Post(func() {
		j.mu.Lock()
		j.done = true
		j.value, j.err = v, err
		cb := j.callback
		j.callback = nil
		j.mu.Unlock()
		if cb != nil {
			cb(v, err)
		}
	})
}
