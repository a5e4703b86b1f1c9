package storage

import (
	"fmt"
	"sync"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// Resolver resolves named storage connections to the provider matching the
// backend type declared in configuration.
type Resolver struct {
	providers map[string]StorageProvider
	cfg       *config.Config
	mu        sync.Mutex
}

// NewResolver creates a Resolver over the given providers, keyed by backend type.
func NewResolver(providers []StorageProvider, cfg *config.Config) *Resolver {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		byType[p.Type()] = p
	}
	return &Resolver{providers: byType, cfg: cfg}
}

// Resolve returns the connection for the given name, routed to the provider
// of the configured backend type.
func (r *Resolver) Resolve(name string) (StorageConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	storageCfg, ok := r.cfg.Heliomorph.Storages[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}

	provider, ok := r.providers[storageCfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", storageCfg.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, storageCfg.Type, err)
	}
	return conn, nil
}

// CloseAll closes every connection across all registered providers.
func (r *Resolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for t, p := range r.providers {
		if err := p.CloseAll(); err != nil {
			logger.Errorf("Failed to close storage connections of type '%s': %v", t, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
