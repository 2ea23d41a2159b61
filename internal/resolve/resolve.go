// Package resolve turns a slash-delimited path or a stash URL into a
// collection or item handle by walking the store one segment at a time.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"stash-go/internal/loop"
	"stash-go/internal/stash"
)

// Result is the outcome of a successful resolution.
type Result struct {
	Handle stash.Handle
	// HadTrailingDelimiter is set when the input ended in "/" (or was empty).
	HadTrailingDelimiter bool
}

// Collection returns the handle as a collection, if it is one.
func (r Result) Collection() (stash.Collection, bool) {
	c, ok := r.Handle.(stash.Collection)
	return c, ok
}

// Resolver resolves a single input. It is single-use: Start may be called once.
type Resolver struct {
	loop  *loop.Loop
	store stash.Store
	input string

	direct   stash.Handle
	isPath   bool
	segments []string
	trailing bool

	index    int
	ancestor stash.Collection
	current  stash.Handle
	started  bool
	done     func(Result, error)
}

// New prepares a resolver for input. No store call is made until Start.
func New(l *loop.Loop, s stash.Store, input string) *Resolver {
	r := &Resolver{loop: l, store: s, input: input}
	if h, ok := stash.ParseURL(input); ok {
		r.direct = h
		r.isPath = true
		return r
	}
	if input != "" && !strings.HasPrefix(input, "/") {
		return r
	}
	r.isPath = true
	r.trailing = input == "" || strings.HasSuffix(input, "/")
	for _, seg := range strings.Split(input, "/") {
		if seg != "" {
			r.segments = append(r.segments, seg)
		}
	}
	return r
}

// IsPath reports whether the input is usable by this resolver. A bare name
// such as "Inbox" is not; callers fall back to parsing it as a direct reference.
func (r *Resolver) IsPath() bool { return r.isPath }

// Input returns the string being resolved.
func (r *Resolver) Input() string { return r.input }

// Segments returns the number of store lookups a full resolution performs.
func (r *Resolver) Segments() int { return len(r.segments) }

// Start begins resolution. done is called exactly once, on the loop, and
// never before Start returns. Each segment is looked up only after the
// previous lookup completed.
func (r *Resolver) Start(done func(Result, error)) {
	if r.started {
		return
	}
	r.started = true
	r.done = done

	switch {
	case !r.isPath:
		r.finishLater(&stash.Error{
			Kind: stash.InvalidUsage,
			Path: r.input,
			Err:  fmt.Errorf("%q is not a path", r.input),
		})
	case r.direct != nil:
		r.current = r.direct
		r.finishLater(nil)
	default:
		r.ancestor = stash.Root()
		r.current = r.ancestor
		if len(r.segments) == 0 {
			r.finishLater(nil)
			return
		}
		r.step()
	}
}

func (r *Resolver) step() {
	if r.index == len(r.segments) {
		r.finish(nil)
		return
	}

	name := r.segments[r.index]
	r.store.ResolveChild(r.ancestor, name).Then(func(h stash.Handle, err error) {
		if err != nil {
			r.finish(r.segmentError(name, err))
			return
		}

		switch v := h.(type) {
		case stash.Collection:
			r.ancestor = v
		case stash.Item:
			if r.index < len(r.segments)-1 {
				r.finish(&stash.Error{
					Kind:    stash.NotFound,
					Path:    r.input,
					Segment: r.index + 1,
					Err:     fmt.Errorf("%q is not a collection", name),
				})
				return
			}
		}
		r.current = h
		r.index++
		r.step()
	})
}

func (r *Resolver) segmentError(name string, err error) error {
	e := &stash.Error{Path: r.input, Segment: r.index + 1, Name: name, Err: err}
	switch kind := stash.KindOf(err); kind {
	case stash.NotFound, stash.Ambiguous:
		e.Kind = kind
	default:
		e.Kind = stash.StoreFailure
		e.Name = ""
		e.Err = fmt.Errorf("resolving %q: %w", name, err)
	}
	return e
}

// finishLater completes without a store round-trip, still through the loop.
func (r *Resolver) finishLater(err error) {
	r.loop.Post(func() { r.finish(err) })
}

func (r *Resolver) finish(err error) {
	done := r.done
	r.done = nil
	if done == nil {
		return
	}
	if err != nil {
		done(Result{}, err)
		return
	}
	done(Result{Handle: r.current, HadTrailingDelimiter: r.trailing}, nil)
}

// ErrNotCollection is returned by RequireCollection when the handle is an item.
var ErrNotCollection = errors.New("is not a collection")

// RequireCollection returns the resolved collection, or an error naming input
// when the result is an item.
func RequireCollection(input string, res Result) (stash.Collection, error) {
	if c, ok := res.Collection(); ok {
		return c, nil
	}
	return stash.Collection{ID: stash.InvalidID}, fmt.Errorf("%s %w", input, ErrNotCollection)
}
