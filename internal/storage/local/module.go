// Package local provides the Fx module for the local storage adapter.
package local

import "go.uber.org/fx"

// Module provides the local storage Provider to the Fx application graph,
// collected into the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
