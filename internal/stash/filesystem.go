package stash

import "io/fs"

// FileSystem is the local file access used by add and dump.
type FileSystem interface {
	// ReadFile returns the whole file. Errors wrap ErrFileNotExist when the
	// path does not exist and ErrFileUnreadable when it exists but cannot be read.
	ReadFile(path string) ([]byte, error)

	MkdirAll(path string, perm fs.FileMode) error

	// WriteFile replaces path atomically with data.
	WriteFile(path string, data []byte, perm fs.FileMode) error
}
