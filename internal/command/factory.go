package command

import (
	"fmt"

	"stash-go/internal/stash"
)

// Descriptor describes a verb for help output.
type Descriptor struct {
	Name    string
	Usage   string
	Summary string
}

type verb struct {
	Descriptor
	build func(Env) Command
}

var verbs = []verb{
	{Descriptor{"add", "add [--tag NAME]... COLLECTION FILE...", "Add files as items to a collection"}, func(e Env) Command { return NewAddCommand(e) }},
	{Descriptor{"list", "list [-c] [-i] [-d] [COLLECTION]", "List the collections and items in a collection"}, func(e Env) Command { return NewListCommand(e) }},
	{Descriptor{"copy", "copy SOURCE DESTINATION", "Copy an item or collection into a collection"}, func(e Env) Command { return NewCopyCommand(e) }},
	{Descriptor{"move", "move SOURCE DESTINATION", "Move an item or collection into a collection"}, func(e Env) Command { return NewMoveCommand(e) }},
	{Descriptor{"dump", "dump [--maildir] [--tags] COLLECTION DIRECTORY", "Write a collection tree to a local directory"}, func(e Env) Command { return NewDumpCommand(e) }},
	{Descriptor{"create", "create PARENT NAME", "Create a collection"}, func(e Env) Command { return NewCreateCommand(e) }},
}

// Factory builds commands by verb name.
type Factory struct {
	env Env
}

func NewFactory(env Env) *Factory {
	return &Factory{env: env}
}

// New returns a fresh command for name. Unknown verbs are an InvalidUsage error.
func (f *Factory) New(name string) (Command, error) {
	if name == "help" {
		return newHelpCommand(f.env), nil
	}
	for _, v := range verbs {
		if v.Name == name {
			return v.build(f.env), nil
		}
	}
	return nil, stash.Errorf(stash.InvalidUsage, "unknown command %q (try \"help\")", name)
}

// Verbs returns the descriptors of all verbs in display order.
func Verbs() []Descriptor {
	out := make([]Descriptor, len(verbs))
	for i, v := range verbs {
		out[i] = v.Descriptor
	}
	return out
}

// Lookup returns the descriptor for name.
func Lookup(name string) (Descriptor, bool) {
	for _, v := range verbs {
		if v.Name == name {
			return v.Descriptor, true
		}
	}
	return Descriptor{}, false
}

// helpCommand prints usage for one verb or all of them.
type helpCommand struct {
	base
	topics []Descriptor
}

func newHelpCommand(env Env) *helpCommand {
	return &helpCommand{base: newBase(env, "help")}
}

func (c *helpCommand) Init(args []string) error {
	switch len(args) {
	case 0:
		c.topics = Verbs()
	case 1:
		d, ok := Lookup(args[0])
		if !ok {
			return stash.Errorf(stash.InvalidUsage, "help: unknown command %q", args[0])
		}
		c.topics = []Descriptor{d}
	default:
		return stash.Errorf(stash.InvalidUsage, "help: too many arguments")
	}
	c.markInitialized()
	return nil
}

func (c *helpCommand) Start(n Notifier) {
	if !c.begin(n) {
		return
	}
	for _, d := range c.topics {
		fmt.Fprintf(c.env.Out, "%-48s %s\n", d.Usage, d.Summary)
	}
	c.finish(ExitOK)
}
