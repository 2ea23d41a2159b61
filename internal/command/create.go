package command

import (
	"fmt"

	"stash-go/internal/stash"
)

// CreateCommand creates a child collection.
type CreateCommand struct {
	base
	parent  *target
	newName string
}

func NewCreateCommand(env Env) *CreateCommand {
	return &CreateCommand{base: newBase(env, "create")}
}

func (c *CreateCommand) Init(args []string) error {
	rest, err := parseFlags(newFlagSet(c.name), args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return stash.Errorf(stash.InvalidUsage, "create: expected PARENT and NAME")
	}
	if err := stash.ValidateName(rest[1]); err != nil {
		return err
	}
	if c.parent, err = c.parseTarget(rest[0], true); err != nil {
		return err
	}
	c.newName = rest[1]
	c.markInitialized()
	return nil
}

func (c *CreateCommand) Start(n Notifier) {
	if !c.begin(n) {
		return
	}
	c.resolveCollection(c.parent, func(parent stash.Collection) {
		c.env.Store.CreateCollection(parent, c.newName).Then(func(created stash.Collection, err error) {
			if err != nil {
				c.failf("Failed to create collection %s: %v", c.newName, err)
				return
			}
			fmt.Fprintln(c.env.Out, created.URL())
			c.finish(ExitOK)
		})
	})
}
