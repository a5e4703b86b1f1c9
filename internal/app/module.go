package app

import (
	"go.uber.org/fx"
)

// Module provides the orchestrator.
var Module = fx.Options(
	fx.Provide(NewOrchestrator),
)
