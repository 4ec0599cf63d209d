// Package assets reads uploaded sponsor files from the media store.
package assets

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when a referenced file is absent from the store.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidPath is returned for paths that escape the media root.
	ErrInvalidPath = errors.New("invalid path")
)

// FileInfo describes a stored file.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FileSystem is the read side of the media store used by exports.
type FileSystem interface {
	// Stat returns ErrNotFound when path does not exist.
	Stat(ctx context.Context, path string) (FileInfo, error)
	// Open returns ErrNotFound when path does not exist. Callers close the reader.
	Open(ctx context.Context, path string) (io.ReadCloser, FileInfo, error)
}
