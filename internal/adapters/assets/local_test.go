package assets

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, root, rel, body string, mod time.Time) {
	t.Helper()
	abs := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(abs, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(abs, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

// TestLocalFS_StatAndOpen tests that size and modification time come from disk.
func TestLocalFS_StatAndOpen(t *testing.T) {
	root := t.TempDir()
	mod := time.Date(2025, 11, 2, 8, 30, 0, 0, time.UTC)
	writeFile(t, root, "logos/acme.png", "PNGDATA", mod)

	fsys, err := NewLocalFS(root)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()

	info, err := fsys.Stat(ctx, "logos/acme.png")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 7 || !info.ModTime.Equal(mod) {
		t.Errorf("unexpected info: %+v", info)
	}

	rc, info, err := fsys.Open(ctx, "logos/acme.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "PNGDATA" || !info.ModTime.Equal(mod) {
		t.Errorf("got %q %+v", body, info)
	}
}

// TestLocalFS_Missing tests that absent files and directories report ErrNotFound.
func TestLocalFS_Missing(t *testing.T) {
	root := t.TempDir()
	os.Mkdir(filepath.Join(root, "dir"), 0o755)
	fsys, _ := NewLocalFS(root)
	ctx := context.Background()

	for _, p := range []string{"nope.png", "dir"} {
		if _, err := fsys.Stat(ctx, p); !errors.Is(err, ErrNotFound) {
			t.Errorf("Stat(%q): expected ErrNotFound, got %v", p, err)
		}
		if _, _, err := fsys.Open(ctx, p); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q): expected ErrNotFound, got %v", p, err)
		}
	}
}

// TestLocalFS_Traversal tests that paths cannot escape the media root.
func TestLocalFS_Traversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "media")
	os.Mkdir(root, 0o755)
	writeFile(t, parent, "secret.txt", "x", time.Now())

	fsys, _ := NewLocalFS(root)
	if _, err := fsys.Stat(context.Background(), "../secret.txt"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

// TestLocalFS_CancelledContext tests that a cancelled context is honoured.
func TestLocalFS_CancelledContext(t *testing.T) {
	fsys, _ := NewLocalFS(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fsys.Stat(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
