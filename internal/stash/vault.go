package stash

import (
	"context"
	"io"
)

// Vault stores item payloads addressed by checksum.
// All operations stream through io.Reader/io.Writer so payloads are never
// required to fit a single buffer inside the backend.
type Vault interface {
	// PutContent stores content identified by its checksum.
	// Storing the same checksum twice is safe.
	// size is the number of bytes that will be read from r.
	PutContent(ctx context.Context, checksum string, r io.Reader, size int64) error

	// GetContent retrieves content by checksum and writes it to w.
	GetContent(ctx context.Context, checksum string, w io.Writer) error

	// HasContent reports whether content with the checksum is already stored.
	HasContent(ctx context.Context, checksum string) (bool, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
