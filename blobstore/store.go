// Package blobstore provides byte-source collaborators for NPY data:
// immutable, randomly addressable blobs behind a small Store
// interface.
//
// A Blob satisfies npy.Source, so a view can be opened directly on
// local files (memory-mapped), in-memory buffers, or remote objects
// read via ranged requests:
//
//	store := blobstore.NewLocalStore("./arrays")
//	blob, _ := store.Open(ctx, "weights.npy")
//	view, _ := npy.NewView[float32](blob)
//
// Remote backends live in the s3 and minio subpackages; CachingStore
// spills remote blobs to a local directory so repeated opens map a
// local file instead of re-fetching.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for accessing immutable data blobs.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for streaming writes. The data becomes
	// visible when the returned writer is closed without error.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	// Delete removes a blob.
	Delete(ctx context.Context, name string) error
	// List returns the blob names under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob. It satisfies npy.Source.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs whose bytes are directly
// addressable (zero-copy).
type Mappable interface {
	// Bytes returns the underlying byte slice, valid until Close.
	Bytes() ([]byte, error)
}
