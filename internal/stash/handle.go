package stash

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RootID identifies the root collection. It always exists and has no parent.
const RootID int64 = 0

// InvalidID marks a handle that does not refer to anything in the store.
const InvalidID int64 = -1

// URLScheme prefixes the native handle form, e.g. "stash:?collection=12".
const URLScheme = "stash:"

// Handle is an opaque reference to a node in the store. A handle is exactly
// one of Collection or Item; use a type switch to tell them apart.
type Handle interface {
	HandleID() int64
	Valid() bool
	URL() string
	isHandle()
}

// Collection is a container node. Collections nest to form the tree rooted at RootID.
type Collection struct {
	ID        int64
	ParentID  int64
	Name      string
	CreatedAt time.Time
}

// Root returns the handle of the root collection.
func Root() Collection {
	return Collection{ID: RootID, ParentID: InvalidID}
}

func (c Collection) HandleID() int64 { return c.ID }
func (c Collection) Valid() bool     { return c.ID >= 0 }
func (c Collection) IsRoot() bool    { return c.ID == RootID }
func (c Collection) URL() string     { return fmt.Sprintf("%s?collection=%d", URLScheme, c.ID) }
func (Collection) isHandle()         {}

// DisplayName returns the collection name, or "/" for the root.
func (c Collection) DisplayName() string {
	if c.IsRoot() {
		return "/"
	}
	return c.Name
}

// Item is a leaf node carrying a payload stored in the vault.
type Item struct {
	ID           int64
	CollectionID int64
	Name         string
	MimeType     string
	Size         int64
	Checksum     string
	Encrypted    bool
	CreatedAt    time.Time
}

func (i Item) HandleID() int64 { return i.ID }
func (i Item) Valid() bool     { return i.ID >= 0 }
func (i Item) URL() string     { return fmt.Sprintf("%s?item=%d", URLScheme, i.ID) }
func (Item) isHandle()         {}

// Tag is a label attached to items.
type Tag struct {
	ID   int64
	Name string
}

// ParseURL parses the native handle form. It returns false if s is not a
// well-formed stash URL naming exactly one collection or item.
func ParseURL(s string) (Handle, bool) {
	rest, ok := strings.CutPrefix(s, URLScheme+"?")
	if !ok {
		return nil, false
	}
	key, value, ok := strings.Cut(rest, "=")
	if !ok {
		return nil, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 0 {
		return nil, false
	}
	switch key {
	case "collection":
		return Collection{ID: id, ParentID: InvalidID}, true
	case "item":
		return Item{ID: id, CollectionID: InvalidID}, true
	default:
		return nil, false
	}
}

// ParseCollectionID accepts a bare non-negative number as a direct collection reference.
func ParseCollectionID(s string) (Collection, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return Collection{ID: InvalidID}, false
	}
	return Collection{ID: id, ParentID: InvalidID}, true
}

// ValidateName rejects names that cannot appear as a path segment.
func ValidateName(name string) error {
	if name == "" {
		return Errorf(InvalidUsage, "name must not be empty")
	}
	if name == "." || name == ".." {
		return Errorf(InvalidUsage, "name %q is reserved", name)
	}
	if strings.Contains(name, "/") {
		return Errorf(InvalidUsage, "name %q must not contain '/'", name)
	}
	return nil
}
