package stash

import "context"

// Catalog is the synchronous metadata backend behind a Store client.
// Lookups that find nothing return an *Error of kind NotFound.
type Catalog interface {
	// Lookup returns every child of parentID named name, collections first.
	Lookup(ctx context.Context, parentID int64, name string) ([]Handle, error)

	GetCollection(ctx context.Context, id int64) (Collection, error)
	ListCollections(ctx context.Context, parentID int64) ([]Collection, error)
	CreateCollection(ctx context.Context, parentID int64, name string) (Collection, error)
	MoveCollection(ctx context.Context, id, destID int64) (Collection, error)
	CopyCollection(ctx context.Context, id, destID int64) (Collection, error)

	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, collectionID int64) ([]Item, error)
	CreateItem(ctx context.Context, it Item) (Item, error)
	MoveItem(ctx context.Context, id, destID int64) (Item, error)
	CopyItem(ctx context.Context, id, destID int64) (Item, error)

	ListTags(ctx context.Context, itemID int64) ([]Tag, error)
	TagItem(ctx context.Context, itemID int64, name string) (Tag, error)

	// CheckMigrations verifies the backing schema is current.
	CheckMigrations() error
	Close() error
}
