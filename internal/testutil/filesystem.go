package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"stash-go/internal/stash"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	IsDirectory bool
	Unreadable  bool
}

// MockFileSystem is an in-memory stash.FileSystem for testing.
type MockFileSystem struct {
	mu    sync.Mutex
	files map[string]*MockFile
	// WriteErr, when set, is returned by every WriteFile call.
	WriteErr error
}

var _ stash.FileSystem = (*MockFileSystem)(nil)

// NewMockFileSystem creates an empty mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{files: make(map[string]*MockFile)}
}

// AddFile adds a readable file.
func (m *MockFileSystem) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &MockFile{Content: content, Permissions: 0644}
}

// AddUnreadableFile adds a file that exists but cannot be read.
func (m *MockFileSystem) AddUnreadableFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &MockFile{Permissions: 0, Unreadable: true}
}

// AddDirectory adds a directory.
func (m *MockFileSystem) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = &MockFile{Permissions: 0755, IsDirectory: true}
}

// File returns the entry stored at path.
func (m *MockFileSystem) File(path string) (*MockFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	return f, ok
}

// Paths returns every regular file path under dir, sorted.
func (m *MockFileSystem) Paths(dir string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = filepath.Clean(dir)
	var out []string
	for p, f := range m.files {
		if f.IsDirectory {
			continue
		}
		if rel, err := filepath.Rel(dir, p); err == nil && rel != ".." && !startsWithParent(rel) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", path, stash.ErrFileNotExist)
	}
	if f.IsDirectory || f.Unreadable {
		return nil, fmt.Errorf("reading %s: %w", path, stash.ErrFileUnreadable)
	}
	return append([]byte(nil), f.Content...), nil
}

func (m *MockFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if f, ok := m.files[p]; ok && !f.IsDirectory {
			return fmt.Errorf("mkdir %s: not a directory", p)
		}
		m.files[p] = &MockFile{Permissions: perm, IsDirectory: true}
		if parent := filepath.Dir(p); parent == p {
			return nil
		}
	}
}

func (m *MockFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	path = filepath.Clean(path)
	if d, ok := m.files[filepath.Dir(path)]; !ok || !d.IsDirectory {
		return fmt.Errorf("writing %s: parent directory missing", path)
	}
	m.files[path] = &MockFile{Content: append([]byte(nil), data...), Permissions: perm}
	return nil
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
