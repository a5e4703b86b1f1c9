package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/internal/storage/local"
)

func resolverConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Heliomorph.Storages = map[string]config.StorageConfig{
		"artifacts": {Type: "local", BaseDir: t.TempDir()},
		"offsite":   {Type: "gcs", Bucket: "somewhere"},
	}
	return cfg
}

func TestResolverRoutesByBackendType(t *testing.T) {
	cfg := resolverConfig(t)
	r := storage.NewResolver([]storage.StorageProvider{local.NewProvider(cfg)}, cfg)

	conn, err := r.Resolve("artifacts")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())
	assert.Equal(t, "artifacts", conn.Name())

	require.NoError(t, r.CloseAll())
}

func TestResolverUnknownConnectionName(t *testing.T) {
	cfg := resolverConfig(t)
	r := storage.NewResolver([]storage.StorageProvider{local.NewProvider(cfg)}, cfg)

	_, err := r.Resolve("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in configuration")
}

func TestResolverUnregisteredBackendType(t *testing.T) {
	cfg := resolverConfig(t)
	// Only the local provider is registered; "offsite" declares gcs.
	r := storage.NewResolver([]storage.StorageProvider{local.NewProvider(cfg)}, cfg)

	_, err := r.Resolve("offsite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no storage provider found")
}
