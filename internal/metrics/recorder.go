// Package metrics records pipeline activity through Prometheus. A recorder is
// always present so callers never branch on whether metrics are enabled.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// Recorder receives pipeline events.
type Recorder interface {
	// RecordBatchStart records the start of a batch run.
	RecordBatchStart(ctx context.Context, runID string, pairCount int)
	// RecordBatchEnd records the end of a batch run.
	RecordBatchEnd(ctx context.Context, runID string, duration time.Duration, failures int)
	// RecordPair records one processed scenario/year pair and its outcome.
	RecordPair(ctx context.Context, scenario string, status string, duration time.Duration)
	// RecordStage records the duration of one pipeline stage for a pair.
	RecordStage(ctx context.Context, stage string, duration time.Duration)
	// RecordValidationFlag records an advisory validation flag.
	RecordValidationFlag(ctx context.Context, flag string)
	// RecordCache records a climatology cache lookup.
	RecordCache(ctx context.Context, hit bool)
}

// PrometheusRecorder is a Prometheus implementation of the Recorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	batchDurationSeconds *prometheus.HistogramVec
	batchPairGauge       *prometheus.GaugeVec

	pairDurationSeconds *prometheus.HistogramVec
	pairStatusCounter   *prometheus.CounterVec

	stageDurationSeconds *prometheus.HistogramVec

	validationFlagCounter *prometheus.CounterVec
	cacheLookupCounter    *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		batchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heliomorph_batch_duration_seconds",
			Help:    "Duration of full batch runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"outcome"}),
		batchPairGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heliomorph_batch_pairs",
			Help: "Number of scenario/year pairs in the current batch run.",
		}, []string{"run_id"}),
		pairDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heliomorph_pair_duration_seconds",
			Help:    "Duration of scenario/year pair processing.",
			Buckets: prometheus.DefBuckets,
		}, []string{"scenario", "status"}),
		pairStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heliomorph_pair_status_total",
			Help: "Total processed scenario/year pairs by status.",
		}, []string{"scenario", "status"}),
		stageDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heliomorph_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		validationFlagCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heliomorph_validation_flags_total",
			Help: "Total advisory validation flags by kind.",
		}, []string{"flag"}),
		cacheLookupCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heliomorph_climatology_cache_total",
			Help: "Total climatology cache lookups by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(r.batchDurationSeconds)
	registry.MustRegister(r.batchPairGauge)
	registry.MustRegister(r.pairDurationSeconds)
	registry.MustRegister(r.pairStatusCounter)
	registry.MustRegister(r.stageDurationSeconds)
	registry.MustRegister(r.validationFlagCounter)
	registry.MustRegister(r.cacheLookupCounter)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordBatchStart records the start of a batch run.
func (r *PrometheusRecorder) RecordBatchStart(ctx context.Context, runID string, pairCount int) {
	r.batchPairGauge.WithLabelValues(runID).Set(float64(pairCount))
	logger.Debugf("Metrics: batch run '%s' started with %d pairs.", runID, pairCount)
}

// RecordBatchEnd records the end of a batch run.
func (r *PrometheusRecorder) RecordBatchEnd(ctx context.Context, runID string, duration time.Duration, failures int) {
	outcome := "ok"
	if failures > 0 {
		outcome = "partial"
	}
	r.batchDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	logger.Debugf("Metrics: batch run '%s' ended. Duration: %.3fs, failures: %d", runID, duration.Seconds(), failures)
}

// RecordPair records one processed scenario/year pair.
func (r *PrometheusRecorder) RecordPair(ctx context.Context, scenario string, status string, duration time.Duration) {
	r.pairStatusCounter.WithLabelValues(scenario, status).Inc()
	r.pairDurationSeconds.WithLabelValues(scenario, status).Observe(duration.Seconds())
}

// RecordStage records the duration of one pipeline stage.
func (r *PrometheusRecorder) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	r.stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordValidationFlag records an advisory validation flag.
func (r *PrometheusRecorder) RecordValidationFlag(ctx context.Context, flag string) {
	r.validationFlagCounter.WithLabelValues(flag).Inc()
}

// RecordCache records a climatology cache lookup.
func (r *PrometheusRecorder) RecordCache(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookupCounter.WithLabelValues(result).Inc()
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NoopRecorder discards every event. Used when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) RecordBatchStart(context.Context, string, int)               {}
func (NoopRecorder) RecordBatchEnd(context.Context, string, time.Duration, int)  {}
func (NoopRecorder) RecordPair(context.Context, string, string, time.Duration)   {}
func (NoopRecorder) RecordStage(context.Context, string, time.Duration)          {}
func (NoopRecorder) RecordValidationFlag(context.Context, string)                {}
func (NoopRecorder) RecordCache(context.Context, bool)                           {}

var _ Recorder = NoopRecorder{}
