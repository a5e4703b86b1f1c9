package climatology_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/internal/climatology"
	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/gridreader"
	"github.com/camposclima/heliomorph/internal/metrics"
	"github.com/camposclima/heliomorph/internal/storage"
	localstorage "github.com/camposclima/heliomorph/internal/storage/local"
	"github.com/camposclima/heliomorph/pkg/support/exception"
)

func newTestConnection(t *testing.T) storage.StorageConnection {
	t.Helper()
	conn, err := localstorage.NewLocalConnection(config.StorageConfig{
		Type:    "local",
		BaseDir: t.TempDir(),
	}, "artifacts")
	require.NoError(t, err)
	return conn
}

// yearReader serves fixed daily values per requested year and records which
// years were read. Years in the missing set report DataUnavailable.
type yearReader struct {
	value   map[int]float64
	missing map[int]bool
	reads   int
}

func (r *yearReader) Name() string { return "fake" }

func (r *yearReader) ReadDailySeries(ctx context.Context, climateModel string, variable model.Variable, scenario string, year int, loc model.Location) ([]gridreader.Sample, error) {
	r.reads++
	if r.missing[year] {
		return nil, exception.Newf("gridreader", exception.KindDataUnavailable, "no data for %d", year)
	}
	var out []gridreader.Sample
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for t.Year() == year {
		out = append(out, gridreader.Sample{Time: t, Value: r.value[year]})
		t = t.AddDate(0, 0, 1)
	}
	return out, nil
}

func TestCacheRoundTrip(t *testing.T) {
	cache := climatology.NewCache(newTestConnection(t))
	ctx := context.Background()

	loc := model.Location{Lat: -15.6014, Lon: -56.0979}
	window := model.YearWindow{From: 1994, To: 2014}
	key := climatology.Key("ACCESS-CM2", model.VarRsds, loc, window)
	assert.Equal(t, "clim_ACCESS-CM2_rsds_-15.6014_-56.0979_1994-2014.json", key)

	// Miss before write.
	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	var values model.MonthlySeries
	for m := 0; m < 12; m++ {
		values[m] = float64(m + 1)
	}
	clim := &model.MonthlyClimatology{
		Model:    "ACCESS-CM2",
		Variable: model.VarRsds,
		Location: loc,
		Window:   window,
		Values:   values,
	}
	require.NoError(t, cache.Put(ctx, key, clim))

	got, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, clim.Values, got.Values)
	assert.Equal(t, clim.Window, got.Window)
}

func TestCacheCorruptEntryBehavesAsMiss(t *testing.T) {
	conn := newTestConnection(t)
	cache := climatology.NewCache(conn)
	ctx := context.Background()

	require.NoError(t, conn.Upload(ctx, "cache", "broken.json",
		strings.NewReader("{not json"), "application/json"))

	got, err := cache.Get(ctx, "broken.json")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAggregatorComputesWindowMean(t *testing.T) {
	reader := &yearReader{value: map[int]float64{2000: 10, 2001: 20, 2002: 30}}
	agg := climatology.NewAggregator(reader, climatology.NewCache(newTestConnection(t)), metrics.NoopRecorder{})

	clim, err := agg.GetClimatology(context.Background(), "ACCESS-CM2", model.VarRsds,
		model.Location{}, model.YearWindow{From: 2000, To: 2002})
	require.NoError(t, err)

	for m := time.January; m <= time.December; m++ {
		assert.InDelta(t, 20.0, clim.Values.Value(m), 1e-9)
	}
}

func TestAggregatorServesSecondCallFromCache(t *testing.T) {
	reader := &yearReader{value: map[int]float64{2000: 10}}
	agg := climatology.NewAggregator(reader, climatology.NewCache(newTestConnection(t)), metrics.NoopRecorder{})
	window := model.YearWindow{From: 2000, To: 2000}

	_, err := agg.GetClimatology(context.Background(), "ACCESS-CM2", model.VarRsds, model.Location{}, window)
	require.NoError(t, err)
	readsAfterFirst := reader.reads

	_, err = agg.GetClimatology(context.Background(), "ACCESS-CM2", model.VarRsds, model.Location{}, window)
	require.NoError(t, err)
	assert.Equal(t, readsAfterFirst, reader.reads, "second call must not hit the grid reader")
}

func TestAggregatorSkipsMissingYears(t *testing.T) {
	reader := &yearReader{
		value:   map[int]float64{2000: 10, 2002: 30},
		missing: map[int]bool{2001: true},
	}
	agg := climatology.NewAggregator(reader, climatology.NewCache(newTestConnection(t)), metrics.NoopRecorder{})

	clim, err := agg.GetClimatology(context.Background(), "ACCESS-CM2", model.VarRsds,
		model.Location{}, model.YearWindow{From: 2000, To: 2002})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, clim.Values.Value(time.January), 1e-9)
}

func TestAggregatorFailsWhenNoYearHasData(t *testing.T) {
	reader := &yearReader{missing: map[int]bool{2000: true, 2001: true}}
	agg := climatology.NewAggregator(reader, climatology.NewCache(newTestConnection(t)), metrics.NoopRecorder{})

	_, err := agg.GetClimatology(context.Background(), "ACCESS-CM2", model.VarRsds,
		model.Location{}, model.YearWindow{From: 2000, To: 2001})
	require.Error(t, err)
	assert.True(t, exception.IsDataUnavailable(err))
}

// cacheRecorder counts climatology cache lookups by result.
type cacheRecorder struct {
	metrics.NoopRecorder
	hits, misses int
}

func (r *cacheRecorder) RecordCache(ctx context.Context, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestAggregatorCountsCacheHitsAndMisses(t *testing.T) {
	reader := &yearReader{value: map[int]float64{2000: 10}}
	recorder := &cacheRecorder{}
	agg := climatology.NewAggregator(reader, climatology.NewCache(newTestConnection(t)), recorder)
	window := model.YearWindow{From: 2000, To: 2000}

	_, err := agg.GetClimatology(context.Background(), "ACCESS-CM2", model.VarRsds, model.Location{}, window)
	require.NoError(t, err)
	assert.Equal(t, 0, recorder.hits)
	assert.Equal(t, 1, recorder.misses)

	_, err = agg.GetClimatology(context.Background(), "ACCESS-CM2", model.VarRsds, model.Location{}, window)
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.hits)
	assert.Equal(t, 1, recorder.misses)
}

func TestAggregatorGetAllToleratesMissingHumidity(t *testing.T) {
	reader := &humidityLessReader{}
	agg := climatology.NewAggregator(reader, climatology.NewCache(newTestConnection(t)), metrics.NoopRecorder{})

	clims, err := agg.GetAll(context.Background(), "ACCESS-CM2",
		model.Location{}, model.YearWindow{From: 2000, To: 2000})
	require.NoError(t, err)

	assert.NotNil(t, clims[model.VarRsds])
	assert.NotNil(t, clims[model.VarTas])
	assert.NotNil(t, clims[model.VarSfcWind])
	assert.Nil(t, clims[model.VarHurs])
}

// humidityLessReader has data for every variable except hurs.
type humidityLessReader struct{}

func (r *humidityLessReader) Name() string { return "fake" }

func (r *humidityLessReader) ReadDailySeries(ctx context.Context, climateModel string, variable model.Variable, scenario string, year int, loc model.Location) ([]gridreader.Sample, error) {
	if variable == model.VarHurs {
		return nil, exception.Newf("gridreader", exception.KindDataUnavailable, "no humidity data")
	}
	var out []gridreader.Sample
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for t.Year() == year {
		out = append(out, gridreader.Sample{Time: t, Value: 1})
		t = t.AddDate(0, 0, 1)
	}
	return out, nil
}
