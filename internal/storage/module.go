// This module defines Fx providers for the storage backends and the artifact
// connection the pipeline writes through.
package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/camposclima/heliomorph/internal/config"
)

// ProviderSetParams collects every registered StorageProvider.
type ProviderSetParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
}

// NewResolverProvider builds the Resolver over all registered providers.
func NewResolverProvider(params ProviderSetParams, cfg *config.Config) *Resolver {
	return NewResolver(params.Providers, cfg)
}

// NewArtifactConnection resolves the artifact storage connection used for
// profiles, logs, cache entries and analysis tables.
func NewArtifactConnection(r *Resolver) (StorageConnection, error) {
	return r.Resolve(config.ArtifactStorageRef)
}

// Module provides the storage resolver and the artifact connection, and closes
// all connections on shutdown.
var Module = fx.Options(
	fx.Provide(NewResolverProvider),
	fx.Provide(NewArtifactConnection),
	fx.Invoke(func(lc fx.Lifecycle, r *Resolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
