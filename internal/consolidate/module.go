// This module defines the Fx provider for the consolidator.
package consolidate

import "go.uber.org/fx"

// Module provides the consolidator to Fx.
var Module = fx.Options(
	fx.Provide(NewConsolidator),
)
