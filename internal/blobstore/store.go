// Package blobstore abstracts the key-value blob storage backing shared
// objects and in-flight upload chunks. Implementations: S3-compatible object
// storage for deployments, Badger for single-node setups, and an in-memory
// store for tests.
package blobstore

import (
	"context"
	"io"
	"time"
)

// PutOptions carries per-object write options.
type PutOptions struct {
	// TTL, when positive, bounds the object's lifetime. Chunk blobs and
	// one-time tokens use a short TTL so abandoned sessions reclaim
	// themselves without sweeper involvement.
	TTL time.Duration

	// Metadata is an opaque payload attached to the object and returned by
	// GetWithMetadata. Chunk-set manifests live here.
	Metadata []byte
}

// Store is the minimal blob-store surface the rest of the system consumes.
// A missing key is reported as common.ErrorNotFound by every method.
type Store interface {
	// Put stores the contents of r under key. It consumes r to EOF.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error

	// Get returns a reader over the object's bytes.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// GetWithMetadata returns the object's bytes plus its attached metadata
	// (nil when none was stored).
	GetWithMetadata(ctx context.Context, key string) (io.ReadCloser, []byte, error)

	// Delete removes the object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys that start with prefix, in unspecified order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}
