package climatology

import (
	"context"
	"fmt"
	"sync"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/gridreader"
	"github.com/camposclima/heliomorph/internal/metrics"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// historicalScenario is the scenario directory holding reference-period data.
const historicalScenario = "historical"

// Aggregator computes monthly mean climate values over a historical window,
// memoized through the persisted Cache. Climatology computation is
// deterministic and pure, so concurrent misses on the same key may recompute
// redundantly; the per-key mutex keeps it to one writer per process.
type Aggregator struct {
	reader   gridreader.Reader
	cache    *Cache
	recorder metrics.Recorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAggregator creates an Aggregator over the grid reader chain and cache.
func NewAggregator(reader gridreader.Reader, cache *Cache, recorder metrics.Recorder) *Aggregator {
	return &Aggregator{
		reader:   reader,
		cache:    cache,
		recorder: recorder,
		locks:    make(map[string]*sync.Mutex),
	}
}

// keyLock returns the mutex guarding one cache key.
func (a *Aggregator) keyLock(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// GetClimatology returns the monthly climatology of one variable at the grid
// cell nearest loc, averaged over the window. Results are served from the
// cache when present and persisted after computation.
func (a *Aggregator) GetClimatology(ctx context.Context, climateModel string, variable model.Variable, loc model.Location, window model.YearWindow) (*model.MonthlyClimatology, error) {
	key := Key(climateModel, variable, loc, window)

	lock := a.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if clim, err := a.cache.Get(ctx, key); err != nil {
		return nil, err
	} else if clim != nil {
		a.recorder.RecordCache(ctx, true)
		logger.Debugf("Climatology cache hit for '%s'.", key)
		return clim, nil
	}
	a.recorder.RecordCache(ctx, false)

	clim, err := a.compute(ctx, climateModel, variable, loc, window)
	if err != nil {
		return nil, err
	}

	if err := a.cache.Put(ctx, key, clim); err != nil {
		return nil, err
	}
	return clim, nil
}

// compute averages all daily samples of the window per calendar month. Every
// month must receive at least one sample or the whole computation fails with
// DataUnavailable.
func (a *Aggregator) compute(ctx context.Context, climateModel string, variable model.Variable, loc model.Location, window model.YearWindow) (*model.MonthlyClimatology, error) {
	var sums, counts [12]float64
	yearsWithData := 0

	for year := window.From; year <= window.To; year++ {
		samples, err := a.reader.ReadDailySeries(ctx, climateModel, variable, historicalScenario, year, loc)
		if err != nil {
			if exception.IsDataUnavailable(err) {
				logger.Debugf("No %s data for historical year %d, skipping.", variable, year)
				continue
			}
			return nil, err
		}
		yearsWithData++
		for _, s := range samples {
			m := int(s.Time.Month()) - 1
			sums[m] += s.Value
			counts[m]++
		}
	}

	if yearsWithData == 0 {
		return nil, exception.Newf(moduleName, exception.KindDataUnavailable,
			"no historical %s data for %s in window %s", variable, climateModel, window)
	}

	var values model.MonthlySeries
	for m := 0; m < 12; m++ {
		if counts[m] == 0 {
			return nil, exception.Newf(moduleName, exception.KindDataUnavailable,
				"historical %s climatology has no samples for month %d (window %s)", variable, m+1, window)
		}
		values[m] = sums[m] / counts[m]
	}

	logger.Infof("Computed %s climatology for %s at %s over %s (%d contributing years).",
		variable, climateModel, loc.Key(), window, yearsWithData)

	return &model.MonthlyClimatology{
		Model:    climateModel,
		Variable: variable,
		Location: loc,
		Window:   window,
		Values:   values,
	}, nil
}

// GetAll computes the climatology of every driving variable. The humidity
// climatology may be absent; the morph engine falls back to a zero offset
// for it, so a DataUnavailable on hurs returns a nil entry instead of failing.
func (a *Aggregator) GetAll(ctx context.Context, climateModel string, loc model.Location, window model.YearWindow) (map[model.Variable]*model.MonthlyClimatology, error) {
	out := make(map[model.Variable]*model.MonthlyClimatology, len(model.Variables))
	for _, v := range model.Variables {
		clim, err := a.GetClimatology(ctx, climateModel, v, loc, window)
		if err != nil {
			if v == model.VarHurs && exception.IsDataUnavailable(err) {
				logger.Warnf("Historical humidity climatology unavailable, zero offset will be used: %v", err)
				out[v] = nil
				continue
			}
			return nil, fmt.Errorf("climatology for %s: %w", v, err)
		}
		out[v] = clim
	}
	return out, nil
}
