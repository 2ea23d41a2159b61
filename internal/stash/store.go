package stash

import "stash-go/internal/loop"

// NewItem describes an item to be created under a collection.
type NewItem struct {
	Name     string
	MimeType string
	Payload  []byte
}

// Store is the asynchronous client API used by commands. Every method
// submits a job and returns immediately; the job's completion callback runs
// later on the event loop, never during the call itself.
type Store interface {
	// ResolveChild looks up the single child of parent called name.
	// Zero matches yields a NotFound error, several an Ambiguous one.
	ResolveChild(parent Collection, name string) *loop.Job[Handle]

	// FetchBase refreshes the metadata of c itself.
	FetchBase(c Collection) *loop.Job[Collection]

	// FetchChildren lists the direct child collections of c.
	FetchChildren(c Collection) *loop.Job[[]Collection]

	// FetchItems lists the items directly inside c.
	FetchItems(c Collection) *loop.Job[[]Item]

	// FetchPayload returns the decrypted content of it.
	FetchPayload(it Item) *loop.Job[[]byte]

	// FetchTags lists the tags attached to it.
	FetchTags(it Item) *loop.Job[[]Tag]

	CreateItem(parent Collection, it NewItem) *loop.Job[Item]
	CreateCollection(parent Collection, name string) *loop.Job[Collection]
	TagItem(it Item, tag string) *loop.Job[Tag]

	// Move reparents h under dest and returns the updated handle.
	Move(h Handle, dest Collection) *loop.Job[Handle]

	// Copy duplicates h (recursively for collections) under dest and returns the new handle.
	Copy(h Handle, dest Collection) *loop.Job[Handle]
}
