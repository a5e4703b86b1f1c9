package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// NewRecorder picks the recorder implementation from configuration.
func NewRecorder(cfg *config.Config) Recorder {
	if !cfg.Heliomorph.Metrics.Enabled {
		return NoopRecorder{}
	}
	return NewPrometheusRecorder()
}

// startExposition serves /metrics when a listen address is configured.
func startExposition(lc fx.Lifecycle, cfg *config.Config, recorder Recorder) {
	prom, ok := recorder.(*PrometheusRecorder)
	if !ok || cfg.Heliomorph.Metrics.Listen == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prom.GetRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.Heliomorph.Metrics.Listen, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Infof("Serving metrics on %s/metrics", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("Metrics server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// Module provides the metric recorder and the optional exposition endpoint.
var Module = fx.Options(
	fx.Provide(NewRecorder),
	fx.Invoke(startExposition),
)
