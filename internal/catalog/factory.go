// Package catalog implements the metadata side of the store: the collection
// tree, items and tags.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"stash-go/internal/config"
	"stash-go/internal/stash"
)

// FileName is the catalog database file inside the configured data_dir.
const FileName = "catalog.db"

// NewCatalogFromConfig creates a Catalog based on the catalog config type.
// A sqlite catalog is migrated to the latest schema before it is returned.
func NewCatalogFromConfig(cfg config.CatalogConfig, clock stash.Clock) (stash.Catalog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite catalog")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
		c, err := NewSQLiteCatalog(filepath.Join(cfg.DataDir, FileName), clock)
		if err != nil {
			return nil, err
		}
		if err := c.Migrate(); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	case "memory":
		return NewMemoryCatalog(clock), nil
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}
