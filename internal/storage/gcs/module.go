// Package gcs provides the Fx module for the GCS storage adapter.
package gcs

import "go.uber.org/fx"

// Module provides the GCS storage Provider to the Fx application graph,
// collected into the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
