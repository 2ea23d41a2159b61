// Package fs is the real file system behind add and dump.
package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"stash-go/internal/stash"
)

// OSFileSystem implements stash.FileSystem with the os package.
type OSFileSystem struct{}

func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// ReadFile reads a regular file. Missing paths wrap stash.ErrFileNotExist;
// directories, special files and permission failures wrap stash.ErrFileUnreadable.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, stash.ErrFileNotExist)
		}
		return nil, fmt.Errorf("%s: %w: %v", path, stash.ErrFileUnreadable, err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		return nil, fmt.Errorf("%s is a directory: %w", path, stash.ErrFileUnreadable)
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("device files not supported: %s: %w", path, stash.ErrFileUnreadable)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("named pipes not supported: %s: %w", path, stash.ErrFileUnreadable)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("sockets not supported: %s: %w", path, stash.ErrFileUnreadable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, stash.ErrFileUnreadable, err)
	}
	return data, nil
}

func (OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// WriteFile writes data to a temp file next to path and renames it into place.
func (OSFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ stash.FileSystem = OSFileSystem{}
