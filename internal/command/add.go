package command

import (
	"errors"
	"fmt"
	"path/filepath"

	"stash-go/internal/mimetype"
	"stash-go/internal/stash"
	"stash-go/internal/workqueue"
)

// AddCommand uploads local files as items into a collection.
type AddCommand struct {
	base
	tags   []string
	target *target
	files  []string
}

func NewAddCommand(env Env) *AddCommand {
	return &AddCommand{base: newBase(env, "add")}
}

func (c *AddCommand) Init(args []string) error {
	fs := newFlagSet(c.name)
	fs.StringArrayVarP(&c.tags, "tag", "t", nil, "tag to attach to every added item")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return stash.Errorf(stash.InvalidUsage, "add: missing collection argument")
	}
	if len(rest) == 1 {
		return stash.Errorf(stash.InvalidUsage, "add: no files to add")
	}
	for _, tag := range c.tags {
		if tag == "" {
			return stash.Errorf(stash.InvalidUsage, "add: empty tag name")
		}
	}

	// The collection must be given as a path or URL; a bare id is not accepted here.
	t, err := c.parseTarget(rest[0], false)
	if err != nil {
		return err
	}
	c.target = t
	c.files = rest[1:]
	c.markInitialized()
	return nil
}

func (c *AddCommand) Start(n Notifier) {
	if !c.begin(n) {
		return
	}
	c.resolveCollection(c.target, func(coll stash.Collection) {
		if coll.IsRoot() {
			c.addFiles(coll)
			return
		}
		c.env.Store.FetchBase(coll).Then(func(fetched stash.Collection, err error) {
			if err != nil {
				c.fail(fmt.Errorf("cannot fetch collection %s: %w", c.target.raw, err))
				return
			}
			c.addFiles(fetched)
		})
	})
}

func (c *AddCommand) addFiles(coll stash.Collection) {
	q := workqueue.New(c.env.Loop, c.files)
	q.Start(func(file string, done func(error)) {
		c.addFile(coll, file, done)
	}, func(r workqueue.Report[string]) {
		c.env.Logger.Info("add finished", "collection", coll.ID, "files", r.Total(), "failed", len(r.Failures()))
		c.finish(exitCode(r.Total(), len(r.Failures())))
	})
}

func (c *AddCommand) addFile(coll stash.Collection, file string, done func(error)) {
	data, err := c.env.FS.ReadFile(file)
	switch {
	case errors.Is(err, stash.ErrFileNotExist):
		c.unitFailed(done, "File %s does not exist", file)
		return
	case err != nil:
		c.unitFailed(done, "File %s cannot be read", file)
		return
	}

	mimeType, ok := mimetype.Detect(file, data)
	if !ok {
		c.unitFailed(done, "Cannot determine MIME type of file %s", file)
		return
	}

	item := stash.NewItem{Name: filepath.Base(file), MimeType: mimeType, Payload: data}
	c.env.Store.CreateItem(coll, item).Then(func(created stash.Item, err error) {
		if err != nil {
			c.unitFailed(done, "Failed to add %s: %v", file, err)
			return
		}
		c.env.Logger.Debug("item created", "file", file, "item", created.ID)
		c.tagItem(created, file, 0, done)
	})
}

// tagItem attaches the requested tags one at a time.
func (c *AddCommand) tagItem(it stash.Item, file string, i int, done func(error)) {
	if i == len(c.tags) {
		done(nil)
		return
	}
	tag := c.tags[i]
	c.env.Store.TagItem(it, tag).Then(func(_ stash.Tag, err error) {
		if err != nil {
			c.unitFailed(done, "Failed to tag %s with %q: %v", file, tag, err)
			return
		}
		c.tagItem(it, file, i+1, done)
	})
}
