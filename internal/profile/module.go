// This module defines Fx providers for the profile loader and store.
package profile

import "go.uber.org/fx"

// Module provides the profile components to Fx.
var Module = fx.Options(
	fx.Provide(NewLoader),
	fx.Provide(NewStore),
)
