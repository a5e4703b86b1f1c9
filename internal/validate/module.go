// This module defines the Fx provider for the profile validator.
package validate

import "go.uber.org/fx"

// Module provides the validator to Fx.
var Module = fx.Options(
	fx.Provide(NewValidator),
)
