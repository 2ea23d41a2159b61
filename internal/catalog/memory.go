package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"stash-go/internal/stash"
)

// MemoryCatalog is an in-memory implementation of stash.Catalog.
// It is safe for concurrent use and is mainly useful for tests and
// throwaway sessions.
type MemoryCatalog struct {
	mu          sync.RWMutex
	clock       stash.Clock
	nextID      int64
	collections map[int64]stash.Collection
	items       map[int64]stash.Item
	tags        map[string]stash.Tag // name -> tag
	itemTags    map[int64][]int64    // item id -> tag ids in attach order
}

// NewMemoryCatalog creates a catalog holding only the root collection.
func NewMemoryCatalog(clock stash.Clock) *MemoryCatalog {
	if clock == nil {
		clock = stash.RealClock{}
	}
	root := stash.Root()
	root.CreatedAt = clock.Now().UTC()
	return &MemoryCatalog{
		clock:       clock,
		nextID:      1,
		collections: map[int64]stash.Collection{stash.RootID: root},
		items:       make(map[int64]stash.Item),
		tags:        make(map[string]stash.Tag),
		itemTags:    make(map[int64][]int64),
	}
}

func (m *MemoryCatalog) Lookup(_ context.Context, parentID int64, name string) ([]stash.Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.collections[parentID]; !ok {
		return nil, collectionNotFound(parentID)
	}
	var out []stash.Handle
	for _, c := range m.childrenLocked(parentID) {
		if c.Name == name {
			out = append(out, c)
		}
	}
	for _, it := range m.itemsLocked(parentID) {
		if it.Name == name {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *MemoryCatalog) GetCollection(_ context.Context, id int64) (stash.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[id]
	if !ok {
		return stash.Collection{}, collectionNotFound(id)
	}
	return c, nil
}

func (m *MemoryCatalog) ListCollections(_ context.Context, parentID int64) ([]stash.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.collections[parentID]; !ok {
		return nil, collectionNotFound(parentID)
	}
	return m.childrenLocked(parentID), nil
}

func (m *MemoryCatalog) CreateCollection(_ context.Context, parentID int64, name string) (stash.Collection, error) {
	if err := stash.ValidateName(name); err != nil {
		return stash.Collection{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[parentID]; !ok {
		return stash.Collection{}, collectionNotFound(parentID)
	}
	return m.addCollectionLocked(parentID, name), nil
}

func (m *MemoryCatalog) MoveCollection(_ context.Context, id, destID int64) (stash.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[id]
	if !ok {
		return stash.Collection{}, collectionNotFound(id)
	}
	if c.IsRoot() {
		return stash.Collection{}, fmt.Errorf("cannot move the root collection")
	}
	if _, ok := m.collections[destID]; !ok {
		return stash.Collection{}, collectionNotFound(destID)
	}
	for cur := destID; cur != stash.InvalidID; cur = m.collections[cur].ParentID {
		if cur == id {
			return stash.Collection{}, fmt.Errorf("cannot move collection %d into its own subtree", id)
		}
	}
	c.ParentID = destID
	m.collections[id] = c
	return c, nil
}

func (m *MemoryCatalog) CopyCollection(_ context.Context, id, destID int64) (stash.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.collections[id]
	if !ok {
		return stash.Collection{}, collectionNotFound(id)
	}
	if src.IsRoot() {
		return stash.Collection{}, fmt.Errorf("cannot copy the root collection")
	}
	if _, ok := m.collections[destID]; !ok {
		return stash.Collection{}, collectionNotFound(destID)
	}
	for cur := destID; cur != stash.InvalidID; cur = m.collections[cur].ParentID {
		if cur == id {
			return stash.Collection{}, fmt.Errorf("cannot copy collection %d into its own subtree", id)
		}
	}
	return m.copyCollectionLocked(src, destID), nil
}

func (m *MemoryCatalog) GetItem(_ context.Context, id int64) (stash.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return stash.Item{}, itemNotFound(id)
	}
	return it, nil
}

func (m *MemoryCatalog) ListItems(_ context.Context, collectionID int64) ([]stash.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.collections[collectionID]; !ok {
		return nil, collectionNotFound(collectionID)
	}
	return m.itemsLocked(collectionID), nil
}

func (m *MemoryCatalog) CreateItem(_ context.Context, it stash.Item) (stash.Item, error) {
	if err := stash.ValidateName(it.Name); err != nil {
		return stash.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[it.CollectionID]; !ok {
		return stash.Item{}, collectionNotFound(it.CollectionID)
	}
	return m.addItemLocked(it), nil
}

func (m *MemoryCatalog) MoveItem(_ context.Context, id, destID int64) (stash.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return stash.Item{}, itemNotFound(id)
	}
	if _, ok := m.collections[destID]; !ok {
		return stash.Item{}, collectionNotFound(destID)
	}
	it.CollectionID = destID
	m.items[id] = it
	return it, nil
}

func (m *MemoryCatalog) CopyItem(_ context.Context, id, destID int64) (stash.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return stash.Item{}, itemNotFound(id)
	}
	if _, ok := m.collections[destID]; !ok {
		return stash.Item{}, collectionNotFound(destID)
	}
	return m.copyItemLocked(it, destID), nil
}

func (m *MemoryCatalog) ListTags(_ context.Context, itemID int64) ([]stash.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.items[itemID]; !ok {
		return nil, itemNotFound(itemID)
	}
	byID := make(map[int64]stash.Tag, len(m.tags))
	for _, t := range m.tags {
		byID[t.ID] = t
	}
	var out []stash.Tag
	for _, tagID := range m.itemTags[itemID] {
		out = append(out, byID[tagID])
	}
	return out, nil
}

func (m *MemoryCatalog) TagItem(_ context.Context, itemID int64, name string) (stash.Tag, error) {
	if name == "" {
		return stash.Tag{}, stash.Errorf(stash.InvalidUsage, "tag name must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[itemID]; !ok {
		return stash.Tag{}, itemNotFound(itemID)
	}
	return m.tagLocked(itemID, name), nil
}

// CheckMigrations always succeeds: there is no schema to migrate.
func (m *MemoryCatalog) CheckMigrations() error { return nil }

func (m *MemoryCatalog) Close() error { return nil }

func (m *MemoryCatalog) addCollectionLocked(parentID int64, name string) stash.Collection {
	c := stash.Collection{ID: m.nextID, ParentID: parentID, Name: name, CreatedAt: m.clock.Now().UTC()}
	m.nextID++
	m.collections[c.ID] = c
	return c
}

func (m *MemoryCatalog) addItemLocked(it stash.Item) stash.Item {
	it.ID = m.nextID
	it.CreatedAt = m.clock.Now().UTC()
	m.nextID++
	m.items[it.ID] = it
	return it
}

func (m *MemoryCatalog) copyItemLocked(it stash.Item, destID int64) stash.Item {
	srcID := it.ID
	it.CollectionID = destID
	dup := m.addItemLocked(it)
	m.itemTags[dup.ID] = append([]int64(nil), m.itemTags[srcID]...)
	return dup
}

func (m *MemoryCatalog) copyCollectionLocked(src stash.Collection, destID int64) stash.Collection {
	items := m.itemsLocked(src.ID)
	children := m.childrenLocked(src.ID)

	dup := m.addCollectionLocked(destID, src.Name)
	for _, it := range items {
		m.copyItemLocked(it, dup.ID)
	}
	for _, child := range children {
		m.copyCollectionLocked(child, dup.ID)
	}
	return dup
}

func (m *MemoryCatalog) tagLocked(itemID int64, name string) stash.Tag {
	t, ok := m.tags[name]
	if !ok {
		t = stash.Tag{ID: m.nextID, Name: name}
		m.nextID++
		m.tags[name] = t
	}
	for _, id := range m.itemTags[itemID] {
		if id == t.ID {
			return t
		}
	}
	m.itemTags[itemID] = append(m.itemTags[itemID], t.ID)
	return t
}

func (m *MemoryCatalog) childrenLocked(parentID int64) []stash.Collection {
	var out []stash.Collection
	for _, c := range m.collections {
		if c.ParentID == parentID && !c.IsRoot() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryCatalog) itemsLocked(collectionID int64) []stash.Item {
	var out []stash.Item
	for _, it := range m.items {
		if it.CollectionID == collectionID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func collectionNotFound(id int64) error {
	return stash.Errorf(stash.NotFound, "collection %d not found", id)
}

func itemNotFound(id int64) error {
	return stash.Errorf(stash.NotFound, "item %d not found", id)
}

var _ stash.Catalog = (*MemoryCatalog)(nil)
