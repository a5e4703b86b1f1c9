// This module defines Fx providers for the built-in yield estimator and the
// simulation log store.
package simulate

import "go.uber.org/fx"

// Module provides the simulation components to Fx.
var Module = fx.Options(
	fx.Provide(NewEstimator),
	fx.Provide(NewLogStore),
)
