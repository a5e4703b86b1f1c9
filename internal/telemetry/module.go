package telemetry

import (
	"context"

	"go.uber.org/fx"

	"github.com/camposclima/heliomorph/internal/config"
)

// NewTelemetryProvider builds the telemetry stack from the loaded config.
func NewTelemetryProvider(lc fx.Lifecycle, cfg *config.Config) (*Telemetry, error) {
	tel, err := New(context.Background(), cfg.Heliomorph.Telemetry)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tel.Shutdown(ctx)
		},
	})
	return tel, nil
}

// Module provides the telemetry stack and flushes it on shutdown.
var Module = fx.Options(
	fx.Provide(NewTelemetryProvider),
)
