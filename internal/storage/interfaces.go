// Package storage defines the common interfaces for the artifact storage
// backends. Profiles, simulation logs, climatology cache entries and analysis
// tables all go through a StorageConnection so the pipeline is indifferent to
// whether artifacts land on a local directory or an object store.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to the specified bucket and object name. Writes are
	// atomic per object: readers never observe a partially written object.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the specified object for reading. The returned ReadCloser
	// must be closed by the caller.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// Exists reports whether the object is present.
	Exists(ctx context.Context, bucket, objectName string) (bool, error)
	// ListObjects calls fn for each object name under the prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is one named, reusable storage backend connection.
type StorageConnection interface {
	StorageExecutor
	// Close releases resources held by the connection.
	Close() error
	// Type returns the backend type ("local", "gcs").
	Type() string
	// Name returns the configured connection name.
	Name() string
}

// StorageProvider manages the acquisition and lifecycle of storage
// connections of one backend type.
type StorageProvider interface {
	// GetConnection retrieves (or lazily creates) the named connection.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the backend type this provider serves.
	Type() string
}
