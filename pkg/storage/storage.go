package storage

import (
	"context"
	"io"
)

// Store is the thin wrapper around the object storage backing document
// uploads. Keys are opaque strings owned by the store.
type Store interface {
	// Put streams r into a new object and returns its key.
	Put(ctx context.Context, name string, r io.Reader) (key string, size int64, err error)
	// Get opens an object for reading; the caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
