// Package climatology computes and caches the long-term monthly means of
// the climate drivers over a fixed historical reference window.
package climatology

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "climatology"

// cacheBucket is the logical bucket holding climatology cache entries.
const cacheBucket = "cache"

// Cache persists MonthlyClimatology values keyed by
// (model, variable, location, window). Writes go through the storage
// connection's atomic Upload, so entries are never observed half written.
type Cache struct {
	conn storage.StorageConnection
}

// NewCache creates a Cache on top of the artifact storage connection.
func NewCache(conn storage.StorageConnection) *Cache {
	return &Cache{conn: conn}
}

// Key returns the cache object name for one climatology. The location is
// rounded to a stable precision so keys do not churn on float formatting.
func Key(climateModel string, variable model.Variable, loc model.Location, window model.YearWindow) string {
	return fmt.Sprintf("clim_%s_%s_%s_%s.json", climateModel, variable, loc.Key(), window)
}

// Get returns the cached climatology for the key, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, key string) (*model.MonthlyClimatology, error) {
	ok, err := c.conn.Exists(ctx, cacheBucket, key)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("failed to probe cache entry '%s'", key), err)
	}
	if !ok {
		return nil, nil
	}

	rc, err := c.conn.Download(ctx, cacheBucket, key)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("failed to open cache entry '%s'", key), err)
	}
	defer rc.Close()

	var clim model.MonthlyClimatology
	if err := json.NewDecoder(rc).Decode(&clim); err != nil {
		// A corrupt entry behaves as a miss; the caller recomputes and
		// overwrites it.
		logger.Warnf("Cache entry '%s' is corrupt, treating as miss: %v", key, err)
		return nil, nil
	}
	return &clim, nil
}

// Put writes the climatology under the key, replacing any existing entry
// atomically.
func (c *Cache) Put(ctx context.Context, key string, clim *model.MonthlyClimatology) error {
	data, err := json.MarshalIndent(clim, "", "  ")
	if err != nil {
		return exception.New(moduleName, exception.KindMorph,
			fmt.Sprintf("failed to marshal cache entry '%s'", key), err)
	}
	if err := c.conn.Upload(ctx, cacheBucket, key, bytes.NewReader(data), "application/json"); err != nil {
		return exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("failed to write cache entry '%s'", key), err)
	}
	logger.Debugf("Cached climatology '%s'.", key)
	return nil
}
