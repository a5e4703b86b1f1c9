// This module defines Fx providers for the climatology cache and aggregator.
package climatology

import "go.uber.org/fx"

// Module provides the climatology components to Fx.
var Module = fx.Options(
	fx.Provide(NewCache),
	fx.Provide(NewAggregator),
)
