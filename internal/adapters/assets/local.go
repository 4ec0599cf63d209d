package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS serves files from a directory on disk. All paths are confined to root.
type LocalFS struct {
	root string
}

// Compile-time check that *LocalFS satisfies FileSystem.
var _ FileSystem = (*LocalFS)(nil)

// NewLocalFS creates a LocalFS rooted at dir.
// PRE: dir is non-empty
// POST: Returns a LocalFS with an absolute root
func NewLocalFS(dir string) (*LocalFS, error) {
	if dir == "" {
		return nil, errors.New("media root is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	return &LocalFS{root: abs}, nil
}

// Stat reports the size and modification time of path.
func (l *LocalFS) Stat(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	abs, err := l.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, classify(path, err)
	}
	if st.IsDir() {
		return FileInfo{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return FileInfo{Path: path, Size: st.Size(), ModTime: st.ModTime()}, nil
}

// Open opens path for reading.
func (l *LocalFS) Open(ctx context.Context, path string) (io.ReadCloser, FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, FileInfo{}, err
	}
	abs, err := l.resolve(path)
	if err != nil {
		return nil, FileInfo{}, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, FileInfo{}, classify(path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, FileInfo{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return f, FileInfo{Path: path, Size: st.Size(), ModTime: st.ModTime()}, nil
}

// resolve joins path onto root and rejects anything that climbs out of it.
func (l *LocalFS) resolve(path string) (string, error) {
	abs := filepath.Join(l.root, filepath.Clean(path))
	if abs != l.root && !strings.HasPrefix(abs, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return abs, nil
}

func classify(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Errorf("open %s: %w", path, err)
}
