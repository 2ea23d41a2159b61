package command

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"stash-go/internal/stash"
	"stash-go/internal/workqueue"
)

// dumpNode is one collection of the dumped subtree and the directory it is written to.
type dumpNode struct {
	coll    stash.Collection
	dir     string
	subdirs []string
	items   []stash.Item
	used    map[string]bool
}

// tagsSuffix names the sidecar file written next to an item by --tags.
const tagsSuffix = ".tags"

type dumpEntry struct {
	node *dumpNode
	item stash.Item
}

// DumpCommand writes a collection subtree to a local directory, either as
// plain files or as a maildir per collection.
type DumpCommand struct {
	base
	maildir   bool
	withTags  bool
	target    *target
	directory string

	nodes        []*dumpNode
	treeFailures int
}

func NewDumpCommand(env Env) *DumpCommand {
	return &DumpCommand{base: newBase(env, "dump")}
}

func (c *DumpCommand) Init(args []string) error {
	fs := newFlagSet(c.name)
	fs.BoolVarP(&c.maildir, "maildir", "m", false, "write each collection as a maildir")
	fs.BoolVarP(&c.withTags, "tags", "t", false, "write item tags to a .tags file next to each item")
	rest, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return stash.Errorf(stash.InvalidUsage, "dump: expected COLLECTION and DIRECTORY")
	}
	if rest[1] == "" {
		return stash.Errorf(stash.InvalidUsage, "dump: empty directory")
	}
	if c.target, err = c.parseTarget(rest[0], true); err != nil {
		return err
	}
	c.directory = rest[1]
	c.markInitialized()
	return nil
}

func (c *DumpCommand) Start(n Notifier) {
	if !c.begin(n) {
		return
	}
	c.resolveCollection(c.target, func(coll stash.Collection) {
		c.nodes = []*dumpNode{{coll: coll, dir: c.directory}}
		c.fetchTree(0)
	})
}

// fetchTree fetches the children of nodes[i] and appends them, breadth first,
// one collection at a time.
func (c *DumpCommand) fetchTree(i int) {
	if i == len(c.nodes) {
		c.fetchItems()
		return
	}
	node := c.nodes[i]
	c.env.Store.FetchChildren(node.coll).Then(func(children []stash.Collection, err error) {
		if err != nil {
			c.treeFailures++
			c.report(fmt.Sprintf("Failed to list collections of %s: %v", node.dir, err))
		}
		for _, child := range children {
			dir, err := localPath(node.dir, child.Name)
			if err != nil {
				c.treeFailures++
				c.report(fmt.Sprintf("Skipping collection %q in %s: %v", child.Name, node.dir, err))
				continue
			}
			node.subdirs = append(node.subdirs, child.Name)
			c.nodes = append(c.nodes, &dumpNode{coll: child, dir: dir})
		}
		c.fetchTree(i + 1)
	})
}

func (c *DumpCommand) fetchItems() {
	q := workqueue.New(c.env.Loop, c.nodes)
	q.Start(func(node *dumpNode, done func(error)) {
		c.env.Store.FetchItems(node.coll).Then(func(items []stash.Item, err error) {
			if err != nil {
				c.unitFailed(done, "Failed to list items of %s: %v", node.dir, err)
				return
			}
			if err := c.prepareDir(node.dir); err != nil {
				c.unitFailed(done, "Cannot create directory %s: %v", node.dir, err)
				return
			}
			node.items = items
			c.reserveNames(node)
			done(nil)
		})
	}, func(r workqueue.Report[*dumpNode]) {
		var entries []dumpEntry
		for _, node := range c.nodes {
			for _, it := range node.items {
				entries = append(entries, dumpEntry{node: node, item: it})
			}
		}
		c.writeItems(entries, c.treeFailures+len(r.Failures()))
	})
}

func (c *DumpCommand) writeItems(entries []dumpEntry, earlierFailures int) {
	q := workqueue.New(c.env.Loop, entries)
	q.Start(c.writeEntry, func(r workqueue.Report[dumpEntry]) {
		written := r.Succeeded()
		fmt.Fprintf(c.env.Out, "dumped %d item(s) to %s\n", written, c.directory)
		failed := earlierFailures + len(r.Failures())
		c.finish(exitCode(r.Total()+earlierFailures, failed))
	})
}

func (c *DumpCommand) writeEntry(e dumpEntry, done func(error)) {
	c.env.Store.FetchPayload(e.item).Then(func(payload []byte, err error) {
		if err != nil {
			c.unitFailed(done, "Failed to fetch %s: %v", e.item.Name, err)
			return
		}
		if !c.withTags {
			c.writeFiles(e, payload, nil, done)
			return
		}
		c.env.Store.FetchTags(e.item).Then(func(tags []stash.Tag, err error) {
			if err != nil {
				c.unitFailed(done, "Failed to fetch tags of %s: %v", e.item.Name, err)
				return
			}
			c.writeFiles(e, payload, tags, done)
		})
	})
}

func (c *DumpCommand) writeFiles(e dumpEntry, payload []byte, tags []stash.Tag, done func(error)) {
	path, err := c.itemPath(e)
	if err != nil {
		c.unitFailed(done, "Cannot write %q in %s: %v", e.item.Name, e.node.dir, err)
		return
	}
	if err := c.env.FS.WriteFile(path, payload, 0644); err != nil {
		c.unitFailed(done, "Failed to write %s: %v", path, err)
		return
	}
	if c.withTags && len(tags) > 0 {
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.Name
		}
		if err := c.env.FS.WriteFile(path+tagsSuffix, []byte(strings.Join(names, "\n")+"\n"), 0644); err != nil {
			c.unitFailed(done, "Failed to write tags of %s: %v", path, err)
			return
		}
	}
	done(nil)
}

// itemPath picks the output file of an entry. Maildir entries get unique
// names in cur/; plain entries keep the item name, suffixed by the item id
// when the name is already taken in the same directory.
func (c *DumpCommand) itemPath(e dumpEntry) (string, error) {
	if c.maildir {
		return filepath.Join(e.node.dir, "cur", c.env.IDs.New()+":2,"), nil
	}
	if _, err := localPath(e.node.dir, e.item.Name); err != nil {
		return "", err
	}
	name := e.item.Name
	if e.node.used[name] {
		name = name + "." + strconv.FormatInt(e.item.ID, 10)
	}
	e.node.used[name] = true
	if c.withTags {
		e.node.used[name+tagsSuffix] = true
	}
	return filepath.Join(e.node.dir, name), nil
}

// reserveNames marks the names a plain item file must not take: the
// directories of child collections and, with --tags, the sidecars of the
// items in the same collection.
func (c *DumpCommand) reserveNames(node *dumpNode) {
	node.used = make(map[string]bool)
	for _, name := range node.subdirs {
		node.used[name] = true
	}
	if c.withTags {
		for _, it := range node.items {
			node.used[it.Name+tagsSuffix] = true
		}
	}
}

// localPath joins a store name onto dir. Names that are not a single
// path element inside dir are rejected.
func localPath(dir, name string) (string, error) {
	if err := stash.ValidateName(name); err != nil {
		return "", err
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("name %q contains a path separator", name)
	}
	p := filepath.Join(dir, name)
	if rel, err := filepath.Rel(dir, p); err != nil || rel != name {
		return "", fmt.Errorf("name %q leaves %s", name, dir)
	}
	return p, nil
}

func (c *DumpCommand) prepareDir(dir string) error {
	if !c.maildir {
		return c.env.FS.MkdirAll(dir, 0755)
	}
	for _, sub := range []string{"cur", "new", "tmp"} {
		if err := c.env.FS.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return err
		}
	}
	return nil
}
