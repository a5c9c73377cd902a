// Package storage stores uploaded images on a pluggable disk.
//
// Two drivers are available:
//   - "local": a directory served back under STORAGE_URL (default)
//   - "s3":    any S3-compatible bucket (AWS S3, MinIO, R2, Spaces)
//
//	storage.Connect(ctx)
//	err := storage.Default().Put(ctx, "uploads/a.png", file, "image/png")
//	url := storage.Default().URL("uploads/a.png")
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when a path has no object.
var ErrNotExist = errors.New("storage: object does not exist")

// Disk is the driver interface.
type Disk interface {
	// Put writes r to path, replacing any existing object.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error

	// Open returns a reader for path. Caller must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes path. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for path.
	URL(path string) string
}
