// This module defines the Fx provider for the morph engine.
package morph

import "go.uber.org/fx"

// Module provides the morph engine to Fx.
var Module = fx.Options(
	fx.Provide(NewEngine),
)
