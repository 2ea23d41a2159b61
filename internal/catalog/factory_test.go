package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"stash-go/internal/config"
	"stash-go/internal/testutil"
)

func TestNewCatalogFromConfig(t *testing.T) {
	t.Run("memory catalog", func(t *testing.T) {
		got, err := NewCatalogFromConfig(config.CatalogConfig{Type: "memory"}, nil)
		if err != nil {
			t.Fatalf("NewCatalogFromConfig() error = %v", err)
		}
		defer got.Close()
		if _, ok := got.(*MemoryCatalog); !ok {
			t.Errorf("NewCatalogFromConfig() = %T, want *MemoryCatalog", got)
		}
	})

	t.Run("sqlite catalog is migrated", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		got, err := NewCatalogFromConfig(config.CatalogConfig{Type: "sqlite", DataDir: dir}, testutil.FixedClock())
		if err != nil {
			t.Fatalf("NewCatalogFromConfig() error = %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("catalog file not created: %v", err)
		}
	})

	t.Run("sqlite catalog without data_dir", func(t *testing.T) {
		got, err := NewCatalogFromConfig(config.CatalogConfig{Type: "sqlite"}, nil)
		if err == nil {
			got.Close()
			t.Fatal("NewCatalogFromConfig() expected error for missing data_dir")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewCatalogFromConfig(config.CatalogConfig{Type: "postgres"}, nil); err == nil {
			t.Fatal("NewCatalogFromConfig() expected error for unknown type")
		}
	})
}
