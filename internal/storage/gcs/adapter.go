// Package gcs provides a Google Cloud Storage implementation of the storage
// adapter interfaces.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// ProviderType defines the type identifier for this GCS storage provider.
const ProviderType = "gcs"

// gcsConnection implements storage.StorageConnection backed by a GCS bucket.
type gcsConnection struct {
	client *gstorage.Client
	cfg    config.StorageConfig
	name   string
}

var _ storage.StorageConnection = (*gcsConnection)(nil)

// NewGCSConnection dials a GCS client for the configured bucket. Credentials
// come from the configured service-account file, or ambient application
// default credentials, or anonymous access for public buckets.
func NewGCSConnection(ctx context.Context, cfg config.StorageConfig, name string) (storage.StorageConnection, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs storage connection '%s': bucket must be specified in configuration", name)
	}

	var opts []option.ClientOption
	switch {
	case cfg.AnonymousAuth:
		opts = append(opts, option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage connection '%s': failed to create client: %w", name, err)
	}

	return &gcsConnection{client: client, cfg: cfg, name: name}, nil
}

// Close releases the underlying GCS client.
func (c *gcsConnection) Close() error {
	logger.Debugf("GCS storage connection '%s' closed.", c.name)
	return c.client.Close()
}

// Type returns "gcs".
func (c *gcsConnection) Type() string { return ProviderType }

// Name returns the name of this connection.
func (c *gcsConnection) Name() string { return c.name }

// bucketName maps the logical bucket argument onto the configured bucket.
// The logical bucket becomes an object-name prefix so layouts stay identical
// between the local and GCS backends.
func (c *gcsConnection) object(bucket, objectName string) *gstorage.ObjectHandle {
	if bucket != "" {
		objectName = bucket + "/" + objectName
	}
	return c.client.Bucket(c.cfg.Bucket).Object(objectName)
}

// Upload writes data to the object. GCS object writes are atomic: the object
// becomes visible only when the writer is closed successfully.
func (c *gcsConnection) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := c.object(bucket, objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object '%s/%s': %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object '%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded object '%s/%s' (gcs connection '%s').", bucket, objectName, c.name)
	return nil
}

// Download opens the object for reading.
func (c *gcsConnection) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := c.object(bucket, objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object '%s/%s': %w", bucket, objectName, err)
	}
	return r, nil
}

// Exists reports whether the object is present.
func (c *gcsConnection) Exists(ctx context.Context, bucket, objectName string) (bool, error) {
	_, err := c.object(bucket, objectName).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object '%s/%s': %w", bucket, objectName, err)
	}
	return true, nil
}

// ListObjects iterates the bucket prefix and calls fn for each object name,
// with the logical bucket prefix stripped.
func (c *gcsConnection) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	fullPrefix := prefix
	if bucket != "" {
		fullPrefix = bucket + "/" + prefix
	}
	it := c.client.Bucket(c.cfg.Bucket).Objects(ctx, &gstorage.Query{Prefix: fullPrefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to list objects with prefix '%s': %w", fullPrefix, err)
		}
		name := attrs.Name
		if bucket != "" {
			name = name[len(bucket)+1:]
		}
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}

// DeleteObject removes the object. A missing object is not an error.
func (c *gcsConnection) DeleteObject(ctx context.Context, bucket, objectName string) error {
	if err := c.object(bucket, objectName).Delete(ctx); err != nil {
		if errors.Is(err, gstorage.ErrObjectNotExist) {
			logger.Warnf("Attempted to delete non-existent object '%s/%s' (gcs connection '%s').", bucket, objectName, c.name)
			return nil
		}
		return fmt.Errorf("failed to delete object '%s/%s': %w", bucket, objectName, err)
	}
	return nil
}

// Provider implements storage.StorageProvider for GCS connections.
type Provider struct {
	cfg         *config.Config
	connections map[string]storage.StorageConnection
	mu          sync.RWMutex
}

// NewProvider creates a new GCS storage Provider.
func NewProvider(cfg *config.Config) storage.StorageProvider {
	return &Provider{
		cfg:         cfg,
		connections: make(map[string]storage.StorageConnection),
	}
}

// GetConnection retrieves a connection by name, dialing it on first use.
func (p *Provider) GetConnection(name string) (storage.StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	storageCfg, ok := p.cfg.Heliomorph.Storages[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	if storageCfg.Type != ProviderType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, ProviderType, storageCfg.Type)
	}

	newConn, err := NewGCSConnection(context.Background(), storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs connection for '%s': %w", name, err)
	}

	p.connections[name] = newConn
	logger.Debugf("Created new gcs storage connection '%s'.", name)
	return newConn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close gcs storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing gcs storage connections: %v", errs)
	}
	return nil
}

// Type returns "gcs".
func (p *Provider) Type() string { return ProviderType }
