package vault

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stash-go/internal/stash"
)

func newTestFSVault(t *testing.T) *FileSystemVault {
	t.Helper()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	return v
}

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "content")); err != nil {
			t.Errorf("content directory not created: %v", err)
		}
		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutContent(t *testing.T) {
	tests := []struct {
		name     string
		checksum string
		data     string
		size     int64
		wantErr  bool
	}{
		{name: "store content successfully", checksum: "abc123", data: "hello world", size: 11},
		{name: "size mismatch", checksum: "def456", data: "short", size: 100, wantErr: true},
		{name: "empty content", checksum: "e3b0c4", data: "", size: 0},
		{name: "one character key", checksum: "z", data: "tiny", size: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestFSVault(t)
			ctx := context.Background()

			err := v.PutContent(ctx, tt.checksum, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutContent() error = %v, wantErr %v", err, tt.wantErr)
			}

			has, herr := v.HasContent(ctx, tt.checksum)
			if herr != nil {
				t.Fatalf("HasContent() error = %v", herr)
			}
			if has == tt.wantErr {
				t.Errorf("HasContent() = %v after put (wantErr %v)", has, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got, err := os.ReadFile(v.path(tt.checksum))
			if err != nil {
				t.Fatalf("reading stored content: %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("stored content = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemVault_FanOut(t *testing.T) {
	v := newTestFSVault(t)

	if err := v.PutContent(context.Background(), "abcdef", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(v.contentDir, "ab", "abcdef")); err != nil {
		t.Errorf("content not stored under fan-out directory: %v", err)
	}
}

func TestFileSystemVault_PutContent_Idempotent(t *testing.T) {
	v := newTestFSVault(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := v.PutContent(ctx, "abc123", strings.NewReader("hello"), 5); err != nil {
			t.Fatalf("PutContent() iteration %d error = %v", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := v.GetContent(ctx, "abc123", &buf); err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if buf.String() != "hello" {
		t.Errorf("GetContent() = %q, want %q", buf.String(), "hello")
	}
}

func TestFileSystemVault_GetContent(t *testing.T) {
	v := newTestFSVault(t)
	ctx := context.Background()
	if err := v.PutContent(ctx, "abc123", strings.NewReader("hello world"), 11); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}

	t.Run("retrieve existing content", func(t *testing.T) {
		var buf bytes.Buffer
		if err := v.GetContent(ctx, "abc123", &buf); err != nil {
			t.Fatalf("GetContent() error = %v", err)
		}
		if buf.String() != "hello world" {
			t.Errorf("GetContent() = %q, want %q", buf.String(), "hello world")
		}
	})

	t.Run("content not found", func(t *testing.T) {
		var buf bytes.Buffer
		err := v.GetContent(ctx, "nonexistent", &buf)
		if stash.KindOf(err) != stash.NotFound {
			t.Errorf("GetContent() error = %v, want NotFound", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var buf bytes.Buffer
		if err := v.GetContent(cctx, "abc123", &buf); err == nil {
			t.Error("GetContent() with cancelled context error = nil, want error")
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v := newTestFSVault(t)
		if err := v.ValidateSetup(context.Background()); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing root directory", func(t *testing.T) {
		v := &FileSystemVault{
			name:       "test",
			root:       "/nonexistent/path",
			contentDir: "/nonexistent/path/content",
		}
		if err := v.ValidateSetup(context.Background()); err == nil {
			t.Error("ValidateSetup() expected error for missing root")
		}
	})
}

func TestFileSystemVault_AtomicWrite(t *testing.T) {
	v := newTestFSVault(t)

	if err := v.PutContent(context.Background(), "abc123", strings.NewReader("hello world"), 11); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}
	// A failed write must not leave its temp file behind either.
	_ = v.PutContent(context.Background(), "abc999", strings.NewReader("short"), 50)

	entries, err := os.ReadDir(filepath.Join(v.contentDir, "ab"))
	if err != nil {
		t.Fatalf("failed to read content dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
