package command

import (
	"fmt"
	"text/tabwriter"

	"stash-go/internal/stash"
	"stash-go/internal/workqueue"
)

type listPhase int

const (
	listCollections listPhase = iota
	listItems
)

// ListCommand prints the children of a collection.
type ListCommand struct {
	base
	collections bool
	items       bool
	details     bool
	target      *target
	w           *tabwriter.Writer
}

func NewListCommand(env Env) *ListCommand {
	return &ListCommand{base: newBase(env, "list")}
}

func (c *ListCommand) Init(args []string) error {
	fs := newFlagSet(c.name)
	fs.BoolVarP(&c.collections, "collections", "c", false, "list child collections")
	fs.BoolVarP(&c.items, "items", "i", false, "list items")
	fs.BoolVarP(&c.details, "details", "d", false, "show id, MIME type and size")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return stash.Errorf(stash.InvalidUsage, "list: too many arguments")
	}
	if !c.collections && !c.items {
		c.collections, c.items = true, true
	}

	arg := "/"
	if len(rest) == 1 {
		arg = rest[0]
	}
	t, err := c.parseTarget(arg, true)
	if err != nil {
		return err
	}
	c.target = t
	c.markInitialized()
	return nil
}

func (c *ListCommand) Start(n Notifier) {
	if !c.begin(n) {
		return
	}
	c.resolveCollection(c.target, func(coll stash.Collection) {
		var phases []listPhase
		if c.collections {
			phases = append(phases, listCollections)
		}
		if c.items {
			phases = append(phases, listItems)
		}

		c.w = tabwriter.NewWriter(c.env.Out, 0, 8, 2, ' ', 0)
		q := workqueue.New(c.env.Loop, phases)
		q.Start(func(p listPhase, done func(error)) {
			c.runPhase(coll, p, done)
		}, func(r workqueue.Report[listPhase]) {
			c.w.Flush()
			c.finish(exitCode(r.Total(), len(r.Failures())))
		})
	})
}

func (c *ListCommand) runPhase(coll stash.Collection, p listPhase, done func(error)) {
	switch p {
	case listCollections:
		c.env.Store.FetchChildren(coll).Then(func(children []stash.Collection, err error) {
			if err != nil {
				c.unitFailed(done, "Failed to list collections of %s: %v", c.target.raw, err)
				return
			}
			for _, child := range children {
				if c.details {
					fmt.Fprintf(c.w, "%d\t%s/\n", child.ID, child.Name)
				} else {
					fmt.Fprintf(c.w, "%s/\n", child.Name)
				}
			}
			done(nil)
		})
	case listItems:
		c.env.Store.FetchItems(coll).Then(func(items []stash.Item, err error) {
			if err != nil {
				c.unitFailed(done, "Failed to list items of %s: %v", c.target.raw, err)
				return
			}
			for _, it := range items {
				if c.details {
					fmt.Fprintf(c.w, "%d\t%s\t%s\t%d\n", it.ID, it.Name, it.MimeType, it.Size)
				} else {
					fmt.Fprintf(c.w, "%s\n", it.Name)
				}
			}
			done(nil)
		})
	}
}
