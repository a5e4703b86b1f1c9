// Package pipeline runs the morph-validate-simulate chain over every expected
// (scenario, year) pair with a bounded worker pool. Pairs are independent; one
// failing pair never aborts the batch, it is recorded and skipped.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"

	"github.com/camposclima/heliomorph/internal/climatology"
	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/consolidate"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/gridreader"
	"github.com/camposclima/heliomorph/internal/metrics"
	"github.com/camposclima/heliomorph/internal/morph"
	"github.com/camposclima/heliomorph/internal/profile"
	"github.com/camposclima/heliomorph/internal/simulate"
	"github.com/camposclima/heliomorph/internal/telemetry"
	"github.com/camposclima/heliomorph/internal/validate"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// Pipeline executes morphing runs end to end.
type Pipeline struct {
	cfg       *config.Config
	reader    gridreader.Reader
	agg       *climatology.Aggregator
	engine    *morph.Engine
	loader    *profile.Loader
	profiles  *profile.Store
	validator *validate.Validator
	simulator simulate.YieldSimulator
	logs      *simulate.LogStore
	recorder  metrics.Recorder
	tel       *telemetry.Telemetry
}

// NewPipeline creates a Pipeline over the assembled components.
func NewPipeline(
	cfg *config.Config,
	reader gridreader.Reader,
	agg *climatology.Aggregator,
	engine *morph.Engine,
	loader *profile.Loader,
	profiles *profile.Store,
	validator *validate.Validator,
	simulator simulate.YieldSimulator,
	logs *simulate.LogStore,
	recorder metrics.Recorder,
	tel *telemetry.Telemetry,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		reader:    reader,
		agg:       agg,
		engine:    engine,
		loader:    loader,
		profiles:  profiles,
		validator: validator,
		simulator: simulator,
		logs:      logs,
		recorder:  recorder,
		tel:       tel,
	}
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	RunID    string
	Pairs    int
	Failures int
	Elapsed  time.Duration
}

// LoadBaseProfile reads and normalizes the observed base-year profile.
func (p *Pipeline) LoadBaseProfile() (*model.HourlyProfile, error) {
	path := p.cfg.Heliomorph.Paths.BaseProfileCSV
	f, err := os.Open(path)
	if err != nil {
		return nil, exception.New("pipeline", exception.KindStructural,
			fmt.Sprintf("failed to open base profile '%s'", path), err)
	}
	defer f.Close()
	return p.loader.Load(f)
}

// Climatologies resolves the historical monthly climatology of every driving
// variable for the configured site and baseline window.
func (p *Pipeline) Climatologies(ctx context.Context) (map[model.Variable]*model.MonthlyClimatology, error) {
	run := &p.cfg.Heliomorph.Run
	site := &p.cfg.Heliomorph.Site
	loc := model.Location{Lat: site.Latitude, Lon: site.Longitude}
	window := model.YearWindow{From: run.Baseline.From, To: run.Baseline.To}
	return p.agg.GetAll(ctx, run.Model, loc, window)
}

// RunBatch processes every expected pair of the configured run with a bounded
// worker pool. Pair failures are isolated: the batch finishes, failed pairs
// are reported in the aggregated error and surface as non-OK rows at
// consolidation time.
func (p *Pipeline) RunBatch(ctx context.Context) (*BatchResult, error) {
	run := &p.cfg.Heliomorph.Run
	runID := uuid.NewString()
	pairs := consolidate.ExpectedPairs(run)
	started := time.Now()

	ctx, endSpan := p.tel.StartSpan(ctx, "pipeline.batch",
		attribute.String("run_id", runID),
		attribute.String("model", run.Model),
		attribute.Int("pairs", len(pairs)),
	)
	defer endSpan()

	logger.Infof("Starting batch run '%s': model %s, %d pairs, %d workers.",
		runID, run.Model, len(pairs), run.Workers)
	p.recorder.RecordBatchStart(ctx, runID, len(pairs))

	base, err := p.LoadBaseProfile()
	if err != nil {
		p.tel.RecordError(ctx, err)
		return nil, err
	}
	clims, err := p.Climatologies(ctx)
	if err != nil {
		p.tel.RecordError(ctx, err)
		return nil, err
	}

	workers := run.Workers
	if workers < 1 {
		workers = 1
	}

	pairCh := make(chan model.Pair)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures *multierror.Error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pair := range pairCh {
				if err := p.ProcessPair(ctx, base, clims, pair); err != nil {
					mu.Lock()
					failures = multierror.Append(failures, fmt.Errorf("pair %s: %w", pair, err))
					mu.Unlock()
				}
			}
		}()
	}

	for _, pair := range pairs {
		select {
		case pairCh <- pair:
		case <-ctx.Done():
			// Stop feeding; workers drain what they already picked up.
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(pairCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		failures = multierror.Append(failures, err)
	}

	failed := 0
	if failures != nil {
		failed = failures.Len()
	}
	elapsed := time.Since(started)
	p.recorder.RecordBatchEnd(ctx, runID, elapsed, failed)
	logger.Infof("Batch run '%s' finished in %s: %d pairs, %d failed.",
		runID, elapsed.Round(time.Millisecond), len(pairs), failed)

	result := &BatchResult{
		RunID:    runID,
		Pairs:    len(pairs),
		Failures: failed,
		Elapsed:  elapsed,
	}
	if err := failures.ErrorOrNil(); err != nil {
		p.tel.RecordError(ctx, err)
		return result, err
	}
	return result, nil
}

// ProcessPair runs morph, store, validate and simulate for one pair. A
// simulation failure is terminal for the pair but recorded as an ERROR log so
// the consolidator classifies it; earlier failures leave no log and surface as
// NOT_RUN or MISSING_LOG rows.
func (p *Pipeline) ProcessPair(ctx context.Context, base *model.HourlyProfile, clims map[model.Variable]*model.MonthlyClimatology, pair model.Pair) error {
	started := time.Now()

	ctx, endSpan := p.tel.StartSpan(ctx, "pipeline.pair",
		attribute.String("scenario", pair.Scenario),
		attribute.Int("year", pair.Year),
	)
	defer endSpan()

	err := p.processPair(ctx, base, clims, pair, started)
	status := "ok"
	if err != nil {
		status = exception.ExtractKind(err)
		p.tel.RecordError(ctx, err)
		logger.Errorf("Pair %s failed: %v", pair, err)
	}
	p.recorder.RecordPair(ctx, pair.Scenario, status, time.Since(started))
	return err
}

func (p *Pipeline) processPair(ctx context.Context, base *model.HourlyProfile, clims map[model.Variable]*model.MonthlyClimatology, pair model.Pair, started time.Time) error {
	run := &p.cfg.Heliomorph.Run

	future, err := p.futureMonthly(ctx, pair, clims)
	if err != nil {
		return err
	}

	morphStart := time.Now()
	result, err := p.engine.Morph(morph.Inputs{
		Base:          base,
		Climatologies: clims,
		FutureMonthly: future,
		TargetYear:    pair.Year,
	})
	if err != nil {
		return err
	}
	p.recorder.RecordStage(ctx, "morph", time.Since(morphStart))
	if result.HumidityFallback {
		p.recorder.RecordValidationFlag(ctx, "humidity_fallback")
	}

	writeStart := time.Now()
	profilePath, err := p.profiles.Write(ctx, run.Model, pair.Scenario, pair.Year, result.Profile)
	if err != nil {
		return err
	}
	p.recorder.RecordStage(ctx, "write", time.Since(writeStart))

	validateStart := time.Now()
	report, err := p.validator.Validate(result.Profile)
	if err != nil {
		return err
	}
	p.recorder.RecordStage(ctx, "validate", time.Since(validateStart))
	if report.ConsistencyFlagged {
		p.recorder.RecordValidationFlag(ctx, "consistency_mape")
	}
	for field, n := range report.RangeFlags {
		if n > 0 {
			p.recorder.RecordValidationFlag(ctx, "range_"+field)
		}
	}

	simStart := time.Now()
	yield, simErr := p.simulator.SimulateYield(ctx, profilePath, p.cfg.Heliomorph.Simulation)
	p.recorder.RecordStage(ctx, "simulate", time.Since(simStart))

	rec := &model.SimulationLogRecord{
		Model:    run.Model,
		Scenario: pair.Scenario,
		Year:     pair.Year,
		ElapsedS: time.Since(started).Seconds(),
	}
	if simErr != nil {
		rec.Status = model.LogError
		rec.ErrorMessage = exception.ExtractMessage(simErr)
		if err := p.logs.Write(ctx, rec); err != nil {
			return err
		}
		return simErr
	}

	rec.Status = model.LogOK
	rec.AnnualEnergyMWh = yield.AnnualEnergyMWh
	rec.CapacityFactor = yield.CapacityFactor
	rec.MonthlyEnergyKWh = yield.MonthlyEnergyKWh
	if err := p.logs.Write(ctx, rec); err != nil {
		return err
	}

	logger.Infof("Pair %s done: %.1f MWh, CF %.4f (%.2fs).",
		pair, yield.AnnualEnergyMWh, yield.CapacityFactor, rec.ElapsedS)
	return nil
}

// ValidateStored re-validates a profile artifact already on storage and
// returns its advisory report.
func (p *Pipeline) ValidateStored(ctx context.Context, scenario string, year int) (*model.ValidationReport, error) {
	prof, err := p.profiles.Read(ctx, p.cfg.Heliomorph.Run.Model, scenario, year)
	if err != nil {
		return nil, err
	}
	return p.validator.Validate(prof)
}

// futureMonthly reads the target year's monthly mean of every driving
// variable. A missing humidity series degrades to a nil entry, which the morph
// engine turns into a zero offset; any other missing driver is fatal for the
// pair.
func (p *Pipeline) futureMonthly(ctx context.Context, pair model.Pair, clims map[model.Variable]*model.MonthlyClimatology) (map[model.Variable]*model.MonthlySeries, error) {
	run := &p.cfg.Heliomorph.Run
	site := &p.cfg.Heliomorph.Site
	loc := model.Location{Lat: site.Latitude, Lon: site.Longitude}

	out := make(map[model.Variable]*model.MonthlySeries, len(model.Variables))
	for _, v := range model.Variables {
		if v == model.VarSfcWind && !p.cfg.Heliomorph.Morph.UseYearlyWind {
			// Climatology-only wind: a unit factor keeps base wind unchanged.
			if clim := clims[v]; clim != nil {
				values := clim.Values
				out[v] = &values
			}
			continue
		}

		samples, err := p.reader.ReadDailySeries(ctx, run.Model, v, pair.Scenario, pair.Year, loc)
		if err != nil {
			if v == model.VarHurs && exception.IsDataUnavailable(err) {
				out[v] = nil
				continue
			}
			return nil, err
		}
		means, err := gridreader.MonthlyMeans(samples, v, pair.Year)
		if err != nil {
			if v == model.VarHurs && exception.IsDataUnavailable(err) {
				out[v] = nil
				continue
			}
			return nil, err
		}
		out[v] = &means
	}
	return out, nil
}
