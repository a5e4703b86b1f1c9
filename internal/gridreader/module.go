// This module defines the Fx provider for the ranked grid reader chain.
package gridreader

import (
	"go.uber.org/fx"

	"github.com/camposclima/heliomorph/internal/config"
)

// NewChainProvider builds the default reader chain over the configured grid
// directory: Parquet first, CSV as fallback.
func NewChainProvider(cfg *config.Config) Reader {
	gridDir := cfg.Heliomorph.Paths.GridDir
	return NewChain(
		NewParquetReader(gridDir),
		NewCSVReader(gridDir),
	)
}

// Module provides the grid reader chain to Fx.
var Module = fx.Options(
	fx.Provide(NewChainProvider),
)
