// Package app assembles the pipeline components into runnable commands and
// owns the Fx application wiring.
package app

import (
	"context"
	"fmt"

	"github.com/camposclima/heliomorph/internal/analyze"
	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/consolidate"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/pipeline"
	"github.com/camposclima/heliomorph/internal/repository"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// Command names accepted by the orchestrator.
const (
	// CommandRun executes the full chain: batch, consolidate, analyze.
	CommandRun = "run"
	// CommandBatch morphs, validates and simulates every expected pair.
	CommandBatch = "batch"
	// CommandClimatology warms the climatology cache and exits.
	CommandClimatology = "climatology"
	// CommandConsolidate rebuilds the consolidated table from artifacts.
	CommandConsolidate = "consolidate"
	// CommandAnalyze recomputes the statistical report from stored results.
	CommandAnalyze = "analyze"
)

// Orchestrator sequences the pipeline commands.
type Orchestrator struct {
	cfg          *config.Config
	pipe         *pipeline.Pipeline
	consolidator *consolidate.Consolidator
	results      repository.ResultRepository
	analyzer     *analyze.Analyzer
	exporter     *analyze.Exporter
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	cfg *config.Config,
	pipe *pipeline.Pipeline,
	consolidator *consolidate.Consolidator,
	results repository.ResultRepository,
	analyzer *analyze.Analyzer,
	exporter *analyze.Exporter,
) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		pipe:         pipe,
		consolidator: consolidator,
		results:      results,
		analyzer:     analyzer,
		exporter:     exporter,
	}
}

// Run dispatches one command.
func (o *Orchestrator) Run(ctx context.Context, command string) error {
	switch command {
	case CommandRun, "":
		return o.runAll(ctx)
	case CommandBatch:
		_, err := o.RunBatch(ctx)
		return err
	case CommandClimatology:
		return o.RunClimatology(ctx)
	case CommandConsolidate:
		_, err := o.ConsolidateAll(ctx, "")
		return err
	case CommandAnalyze:
		return o.AnalyzeAll(ctx)
	default:
		return exception.Newf("app", exception.KindConfig, "unknown command '%s'", command)
	}
}

// runAll chains batch, consolidation and analysis. Pair failures in the batch
// step do not stop the chain; they become non-OK rows and reduce coverage.
func (o *Orchestrator) runAll(ctx context.Context) error {
	result, batchErr := o.RunBatch(ctx)
	if batchErr != nil && result == nil {
		return batchErr
	}
	if batchErr != nil {
		logger.Warnf("Batch finished with %d failed pairs, continuing to consolidation.", result.Failures)
	}

	runID := ""
	if result != nil {
		runID = result.RunID
	}
	if _, err := o.ConsolidateAll(ctx, runID); err != nil {
		return err
	}
	if err := o.AnalyzeAll(ctx); err != nil {
		return err
	}
	return batchErr
}

// RunBatch executes the morph-validate-simulate pipeline over every expected
// pair.
func (o *Orchestrator) RunBatch(ctx context.Context) (*pipeline.BatchResult, error) {
	return o.pipe.RunBatch(ctx)
}

// RunClimatology computes and caches the historical climatology of every
// driving variable without running any pair.
func (o *Orchestrator) RunClimatology(ctx context.Context) error {
	clims, err := o.pipe.Climatologies(ctx)
	if err != nil {
		return err
	}
	logger.Infof("Climatology cache warmed for %d variables.", len(clims))
	return nil
}

// RunMorphOne processes a single (scenario, year) pair end to end.
func (o *Orchestrator) RunMorphOne(ctx context.Context, scenario string, year int) error {
	base, err := o.pipe.LoadBaseProfile()
	if err != nil {
		return err
	}
	clims, err := o.pipe.Climatologies(ctx)
	if err != nil {
		return err
	}
	return o.pipe.ProcessPair(ctx, base, clims, model.Pair{Scenario: scenario, Year: year})
}

// ValidateOne re-validates a stored profile artifact and logs its flags.
func (o *Orchestrator) ValidateOne(ctx context.Context, scenario string, year int) (*model.ValidationReport, error) {
	report, err := o.pipe.ValidateStored(ctx, scenario, year)
	if err != nil {
		return nil, err
	}
	if report.Flagged() {
		logger.Warnf("Profile %s/%d carries advisory flags (MAPE %.2f%%, range flags %v).",
			scenario, year, report.ConsistencyMAPE, report.RangeFlags)
	}
	return report, nil
}

// ConsolidateAll rebuilds the consolidated table from the artifacts on
// storage, writes the CSV artifact and upserts the rows into the results
// database.
func (o *Orchestrator) ConsolidateAll(ctx context.Context, runID string) (int, error) {
	records, err := o.consolidator.Consolidate(ctx, runID)
	if err != nil {
		return 0, err
	}
	if err := o.results.SaveAll(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to persist consolidated records: %w", err)
	}
	return len(records), nil
}

// AnalyzeAll loads the consolidated rows from the results database, computes
// the statistical report and exports the analysis tables.
func (o *Orchestrator) AnalyzeAll(ctx context.Context) error {
	records, err := o.results.FindAll(ctx)
	if err != nil {
		return err
	}
	report, err := o.analyzer.Analyze(records)
	if err != nil {
		return err
	}
	return o.exporter.Export(ctx, report)
}
