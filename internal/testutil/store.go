package testutil

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"stash-go/internal/loop"
	"stash-go/internal/stash"
)

// MockStore is an in-memory stash.Store that records every call.
// Each call runs on its own goroutine like the real client, and the store
// tracks how many jobs were outstanding at once so tests can assert that
// callers serialize their requests.
type MockStore struct {
	loop *loop.Loop

	mu             sync.Mutex
	nextID         int64
	collections    map[int64]stash.Collection
	items          map[int64]stash.Item
	payloads       map[int64][]byte
	tags           map[int64][]stash.Tag
	failures       map[string]error
	calls          []string
	outstanding    int
	maxOutstanding int
}

var _ stash.Store = (*MockStore)(nil)

// NewMockStore creates a store holding only the root collection.
func NewMockStore(l *loop.Loop) *MockStore {
	m := &MockStore{
		loop:        l,
		nextID:      1,
		collections: map[int64]stash.Collection{stash.RootID: stash.Root()},
		items:       make(map[int64]stash.Item),
		payloads:    make(map[int64][]byte),
		tags:        make(map[int64][]stash.Tag),
		failures:    make(map[string]error),
	}
	return m
}

// AddCollection creates a collection directly, without going through a job.
func (m *MockStore) AddCollection(parentID int64, name string) stash.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addCollectionLocked(parentID, name)
}

// AddItem creates an item directly, without going through a job.
func (m *MockStore) AddItem(collectionID int64, name, mimeType string, payload []byte, tags ...string) stash.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.addItemLocked(collectionID, name, mimeType, payload)
	for _, tag := range tags {
		m.tagLocked(it.ID, tag)
	}
	return it
}

// FailOn makes the next calls of op whose argument is arg fail with err.
// arg is the child name for ResolveChild and the create calls, and the
// name of the collection or item operated on otherwise.
func (m *MockStore) FailOn(op, arg string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+":"+arg] = err
}

// Calls returns the recorded calls in submission order, e.g. "ResolveChild(0,Inbox)".
func (m *MockStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many calls of op were submitted.
func (m *MockStore) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, op+"(") {
			n++
		}
	}
	return n
}

// MaxOutstanding returns the largest number of jobs in flight at once.
func (m *MockStore) MaxOutstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxOutstanding
}

// Collection returns a stored collection by ID.
func (m *MockStore) Collection(id int64) (stash.Collection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[id]
	return c, ok
}

// ItemsIn returns the items inside a collection, ordered by ID.
func (m *MockStore) ItemsIn(collectionID int64) []stash.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsLocked(collectionID)
}

// ChildrenOf returns the child collections of parentID, ordered by ID.
func (m *MockStore) ChildrenOf(parentID int64) []stash.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.childrenLocked(parentID)
}

// Payload returns the stored payload of an item.
func (m *MockStore) Payload(itemID int64) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payloads[itemID]
}

// TagsOf returns the tag names of an item.
func (m *MockStore) TagsOf(itemID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, t := range m.tags[itemID] {
		names = append(names, t.Name)
	}
	return names
}

func (m *MockStore) ResolveChild(parent stash.Collection, name string) *loop.Job[stash.Handle] {
	call := fmt.Sprintf("ResolveChild(%d,%s)", parent.ID, name)
	return submit(m, call, "ResolveChild:"+name, func() (stash.Handle, error) {
		var matches []stash.Handle
		for _, c := range m.childrenLocked(parent.ID) {
			if c.Name == name {
				matches = append(matches, c)
			}
		}
		for _, it := range m.itemsLocked(parent.ID) {
			if it.Name == name {
				matches = append(matches, it)
			}
		}
		switch len(matches) {
		case 0:
			return nil, stash.Errorf(stash.NotFound, "no child named %q", name)
		case 1:
			return matches[0], nil
		default:
			return nil, stash.Errorf(stash.Ambiguous, "%d children named %q", len(matches), name)
		}
	})
}

func (m *MockStore) FetchBase(c stash.Collection) *loop.Job[stash.Collection] {
	return submit(m, fmt.Sprintf("FetchBase(%d)", c.ID), "FetchBase:"+c.Name, func() (stash.Collection, error) {
		stored, ok := m.collections[c.ID]
		if !ok {
			return stash.Collection{}, stash.Errorf(stash.NotFound, "collection %d not found", c.ID)
		}
		return stored, nil
	})
}

func (m *MockStore) FetchChildren(c stash.Collection) *loop.Job[[]stash.Collection] {
	return submit(m, fmt.Sprintf("FetchChildren(%d)", c.ID), "FetchChildren:"+c.Name, func() ([]stash.Collection, error) {
		if _, ok := m.collections[c.ID]; !ok {
			return nil, stash.Errorf(stash.NotFound, "collection %d not found", c.ID)
		}
		return m.childrenLocked(c.ID), nil
	})
}

func (m *MockStore) FetchItems(c stash.Collection) *loop.Job[[]stash.Item] {
	return submit(m, fmt.Sprintf("FetchItems(%d)", c.ID), "FetchItems:"+c.Name, func() ([]stash.Item, error) {
		if _, ok := m.collections[c.ID]; !ok {
			return nil, stash.Errorf(stash.NotFound, "collection %d not found", c.ID)
		}
		return m.itemsLocked(c.ID), nil
	})
}

func (m *MockStore) FetchPayload(it stash.Item) *loop.Job[[]byte] {
	return submit(m, fmt.Sprintf("FetchPayload(%d)", it.ID), "FetchPayload:"+it.Name, func() ([]byte, error) {
		if _, ok := m.items[it.ID]; !ok {
			return nil, stash.Errorf(stash.NotFound, "item %d not found", it.ID)
		}
		return append([]byte(nil), m.payloads[it.ID]...), nil
	})
}

func (m *MockStore) FetchTags(it stash.Item) *loop.Job[[]stash.Tag] {
	return submit(m, fmt.Sprintf("FetchTags(%d)", it.ID), "FetchTags:"+it.Name, func() ([]stash.Tag, error) {
		return append([]stash.Tag(nil), m.tags[it.ID]...), nil
	})
}

func (m *MockStore) CreateItem(parent stash.Collection, it stash.NewItem) *loop.Job[stash.Item] {
	call := fmt.Sprintf("CreateItem(%d,%s)", parent.ID, it.Name)
	return submit(m, call, "CreateItem:"+it.Name, func() (stash.Item, error) {
		if _, ok := m.collections[parent.ID]; !ok {
			return stash.Item{}, stash.Errorf(stash.NotFound, "collection %d not found", parent.ID)
		}
		return m.addItemLocked(parent.ID, it.Name, it.MimeType, it.Payload), nil
	})
}

func (m *MockStore) CreateCollection(parent stash.Collection, name string) *loop.Job[stash.Collection] {
	call := fmt.Sprintf("CreateCollection(%d,%s)", parent.ID, name)
	return submit(m, call, "CreateCollection:"+name, func() (stash.Collection, error) {
		if _, ok := m.collections[parent.ID]; !ok {
			return stash.Collection{}, stash.Errorf(stash.NotFound, "collection %d not found", parent.ID)
		}
		return m.addCollectionLocked(parent.ID, name), nil
	})
}

func (m *MockStore) TagItem(it stash.Item, tag string) *loop.Job[stash.Tag] {
	call := fmt.Sprintf("TagItem(%d,%s)", it.ID, tag)
	return submit(m, call, "TagItem:"+it.Name, func() (stash.Tag, error) {
		return m.tagLocked(it.ID, tag), nil
	})
}

func (m *MockStore) Move(h stash.Handle, dest stash.Collection) *loop.Job[stash.Handle] {
	call := fmt.Sprintf("Move(%s,%d)", h.URL(), dest.ID)
	return submit(m, call, "Move:"+handleName(m, h), func() (stash.Handle, error) {
		if _, ok := m.collections[dest.ID]; !ok {
			return nil, stash.Errorf(stash.NotFound, "collection %d not found", dest.ID)
		}
		switch v := h.(type) {
		case stash.Collection:
			c, ok := m.collections[v.ID]
			if !ok || c.IsRoot() {
				return nil, stash.Errorf(stash.NotFound, "collection %d not found", v.ID)
			}
			for id := dest.ID; id != stash.InvalidID; id = m.collections[id].ParentID {
				if id == c.ID {
					return nil, fmt.Errorf("cannot move collection into itself")
				}
			}
			c.ParentID = dest.ID
			m.collections[c.ID] = c
			return c, nil
		case stash.Item:
			it, ok := m.items[v.ID]
			if !ok {
				return nil, stash.Errorf(stash.NotFound, "item %d not found", v.ID)
			}
			it.CollectionID = dest.ID
			m.items[it.ID] = it
			return it, nil
		}
		return nil, fmt.Errorf("unsupported handle %T", h)
	})
}

func (m *MockStore) Copy(h stash.Handle, dest stash.Collection) *loop.Job[stash.Handle] {
	call := fmt.Sprintf("Copy(%s,%d)", h.URL(), dest.ID)
	return submit(m, call, "Copy:"+handleName(m, h), func() (stash.Handle, error) {
		if _, ok := m.collections[dest.ID]; !ok {
			return nil, stash.Errorf(stash.NotFound, "collection %d not found", dest.ID)
		}
		switch v := h.(type) {
		case stash.Collection:
			if _, ok := m.collections[v.ID]; !ok {
				return nil, stash.Errorf(stash.NotFound, "collection %d not found", v.ID)
			}
			return m.copyCollectionLocked(v.ID, dest.ID), nil
		case stash.Item:
			it, ok := m.items[v.ID]
			if !ok {
				return nil, stash.Errorf(stash.NotFound, "item %d not found", v.ID)
			}
			return m.addItemLocked(dest.ID, it.Name, it.MimeType, m.payloads[it.ID]), nil
		}
		return nil, fmt.Errorf("unsupported handle %T", h)
	})
}

// submit records the call and runs fn under the store lock on a goroutine.
func submit[T any](m *MockStore, call, key string, fn func() (T, error)) *loop.Job[T] {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.outstanding++
	if m.outstanding > m.maxOutstanding {
		m.maxOutstanding = m.outstanding
	}
	failErr := m.failures[key]
	m.mu.Unlock()

	return loop.Submit(m.loop, func() (T, error) {
		// Posted before the completion, so it lands just ahead of the callback.
		defer m.loop.Post(func() {
			m.mu.Lock()
			m.outstanding--
			m.mu.Unlock()
		})
		m.mu.Lock()
		defer m.mu.Unlock()
		if failErr != nil {
			var zero T
			return zero, failErr
		}
		return fn()
	})
}

func handleName(m *MockStore, h stash.Handle) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := h.(type) {
	case stash.Collection:
		return m.collections[v.ID].Name
	case stash.Item:
		return m.items[v.ID].Name
	}
	return ""
}

func (m *MockStore) addCollectionLocked(parentID int64, name string) stash.Collection {
	c := stash.Collection{ID: m.nextID, ParentID: parentID, Name: name}
	m.nextID++
	m.collections[c.ID] = c
	return c
}

func (m *MockStore) addItemLocked(collectionID int64, name, mimeType string, payload []byte) stash.Item {
	it := stash.Item{
		ID:           m.nextID,
		CollectionID: collectionID,
		Name:         name,
		MimeType:     mimeType,
		Size:         int64(len(payload)),
		Checksum:     SHA256Hex(payload),
	}
	m.nextID++
	m.items[it.ID] = it
	m.payloads[it.ID] = append([]byte(nil), payload...)
	return it
}

func (m *MockStore) tagLocked(itemID int64, name string) stash.Tag {
	for _, t := range m.tags[itemID] {
		if t.Name == name {
			return t
		}
	}
	t := stash.Tag{ID: m.nextID, Name: name}
	m.nextID++
	m.tags[itemID] = append(m.tags[itemID], t)
	return t
}

func (m *MockStore) copyCollectionLocked(id, destID int64) stash.Collection {
	src := m.collections[id]
	dup := m.addCollectionLocked(destID, src.Name)
	for _, it := range m.itemsLocked(id) {
		m.addItemLocked(dup.ID, it.Name, it.MimeType, m.payloads[it.ID])
	}
	for _, child := range m.childrenLocked(id) {
		if child.ID == dup.ID {
			continue
		}
		m.copyCollectionLocked(child.ID, dup.ID)
	}
	return dup
}

func (m *MockStore) childrenLocked(parentID int64) []stash.Collection {
	var out []stash.Collection
	for _, c := range m.collections {
		if c.ParentID == parentID && !c.IsRoot() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockStore) itemsLocked(collectionID int64) []stash.Item {
	var out []stash.Item
	for _, it := range m.items {
		if it.CollectionID == collectionID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
