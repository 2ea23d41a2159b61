package command

import (
	"fmt"

	"stash-go/internal/loop"
	"stash-go/internal/resolve"
	"stash-go/internal/stash"
)

// relocateFunc performs the store operation of a relocation.
type relocateFunc func(s stash.Store, h stash.Handle, dest stash.Collection) *loop.Job[stash.Handle]

// RelocateCommand resolves a source and a destination collection and then
// applies one store operation. Copy and move differ only in that operation.
type RelocateCommand struct {
	base
	past   string
	op     relocateFunc
	source *target
	dest   *target
}

// NewCopyCommand copies an item or a whole collection into another collection.
func NewCopyCommand(env Env) *RelocateCommand {
	return newRelocateCommand(env, "copy", "copied", func(s stash.Store, h stash.Handle, dest stash.Collection) *loop.Job[stash.Handle] {
		return s.Copy(h, dest)
	})
}

// NewMoveCommand moves an item or collection into another collection.
func NewMoveCommand(env Env) *RelocateCommand {
	return newRelocateCommand(env, "move", "moved", func(s stash.Store, h stash.Handle, dest stash.Collection) *loop.Job[stash.Handle] {
		return s.Move(h, dest)
	})
}

func newRelocateCommand(env Env, name, past string, op relocateFunc) *RelocateCommand {
	return &RelocateCommand{base: newBase(env, name), past: past, op: op}
}

func (c *RelocateCommand) Init(args []string) error {
	rest, err := parseFlags(newFlagSet(c.name), args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return stash.Errorf(stash.InvalidUsage, "%s: expected SOURCE and DESTINATION", c.name)
	}
	if c.source, err = c.parseTarget(rest[0], true); err != nil {
		return err
	}
	if c.dest, err = c.parseTarget(rest[1], true); err != nil {
		return err
	}
	c.markInitialized()
	return nil
}

func (c *RelocateCommand) Start(n Notifier) {
	if !c.begin(n) {
		return
	}

	// The destination is only resolved once the source is known.
	c.resolveTarget(c.source, func(res resolve.Result, err error) {
		if err != nil {
			c.fail(fmt.Errorf("cannot resolve %s: %w", c.source.raw, err))
			return
		}
		if res.HadTrailingDelimiter {
			if _, err := resolve.RequireCollection(c.source.raw, res); err != nil {
				c.fail(err)
				return
			}
		}
		src := res.Handle
		c.resolveCollection(c.dest, func(dest stash.Collection) {
			c.relocate(src, dest)
		})
	})
}

func (c *RelocateCommand) relocate(src stash.Handle, dest stash.Collection) {
	if coll, ok := src.(stash.Collection); ok {
		if coll.IsRoot() {
			c.fail(fmt.Errorf("cannot %s the root collection", c.name))
			return
		}
		if coll.ID == dest.ID {
			c.fail(fmt.Errorf("cannot %s %s into itself", c.name, c.source.raw))
			return
		}
	}

	c.op(c.env.Store, src, dest).Then(func(h stash.Handle, err error) {
		if err != nil {
			c.failf("Failed to %s %s to %s: %v", c.name, c.source.raw, c.dest.raw, err)
			return
		}
		fmt.Fprintf(c.env.Out, "%s %s to %s (%s)\n", c.past, c.source.raw, c.dest.raw, h.URL())
		c.finish(ExitOK)
	})
}
