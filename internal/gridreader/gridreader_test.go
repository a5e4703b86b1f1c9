package gridreader_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/gridreader"
	"github.com/camposclima/heliomorph/pkg/support/exception"
)

// fakeReader returns canned samples or a canned error.
type fakeReader struct {
	name    string
	samples []gridreader.Sample
	err     error
	calls   int
}

func (f *fakeReader) Name() string { return f.name }

func (f *fakeReader) ReadDailySeries(ctx context.Context, climateModel string, variable model.Variable, scenario string, year int, loc model.Location) ([]gridreader.Sample, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.samples, nil
}

func dailySamples(year int, value float64) []gridreader.Sample {
	var out []gridreader.Sample
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for t.Year() == year {
		out = append(out, gridreader.Sample{Time: t, Lat: -15.5, Lon: -56.0, Value: value})
		t = t.AddDate(0, 0, 1)
	}
	return out
}

func TestChainFallsThroughOnDataUnavailable(t *testing.T) {
	unavailable := exception.Newf("gridreader", exception.KindDataUnavailable, "no parquet file")
	first := &fakeReader{name: "parquet", err: unavailable}
	second := &fakeReader{name: "csv", samples: dailySamples(2050, 200)}
	chain := gridreader.NewChain(first, second)

	samples, err := chain.ReadDailySeries(context.Background(), "ACCESS-CM2", model.VarRsds, "ssp245", 2050, model.Location{})
	require.NoError(t, err)
	assert.Len(t, samples, 365)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestChainAbortsOnOtherErrors(t *testing.T) {
	structural := exception.Newf("gridreader", exception.KindStructural, "corrupt file")
	first := &fakeReader{name: "parquet", err: structural}
	second := &fakeReader{name: "csv", samples: dailySamples(2050, 200)}
	chain := gridreader.NewChain(first, second)

	_, err := chain.ReadDailySeries(context.Background(), "ACCESS-CM2", model.VarRsds, "ssp245", 2050, model.Location{})
	require.Error(t, err)
	assert.True(t, exception.IsStructural(err))
	assert.Equal(t, 0, second.calls)
}

func TestChainReportsUnavailableWhenAllFail(t *testing.T) {
	unavailable := exception.Newf("gridreader", exception.KindDataUnavailable, "missing")
	chain := gridreader.NewChain(&fakeReader{name: "a", err: unavailable}, &fakeReader{name: "b", err: unavailable})

	_, err := chain.ReadDailySeries(context.Background(), "ACCESS-CM2", model.VarRsds, "ssp245", 2050, model.Location{})
	require.Error(t, err)
	assert.True(t, exception.IsDataUnavailable(err))
}

func TestMonthlyMeans(t *testing.T) {
	samples := dailySamples(2050, 10)
	means, err := gridreader.MonthlyMeans(samples, model.VarRsds, 2050)
	require.NoError(t, err)
	for m := time.January; m <= time.December; m++ {
		assert.InDelta(t, 10.0, means.Value(m), 1e-9)
	}
}

func TestMonthlyMeansFailsOnEmptyMonth(t *testing.T) {
	var samples []gridreader.Sample
	// Only January data.
	t0 := time.Date(2050, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 31; d++ {
		samples = append(samples, gridreader.Sample{Time: t0.AddDate(0, 0, d), Value: 5})
	}

	_, err := gridreader.MonthlyMeans(samples, model.VarRsds, 2050)
	require.Error(t, err)
	assert.True(t, exception.IsDataUnavailable(err))
}

func writeGridCSV(t *testing.T, dir, scenario, name string, rows [][]string) {
	t.Helper()
	scenarioDir := filepath.Join(dir, scenario)
	require.NoError(t, os.MkdirAll(scenarioDir, 0o755))

	content := "date,lat,lon,value\n"
	for _, r := range rows {
		content += fmt.Sprintf("%s,%s,%s,%s\n", r[0], r[1], r[2], r[3])
	}
	require.NoError(t, os.WriteFile(filepath.Join(scenarioDir, name), []byte(content), 0o644))
}

func TestCSVReaderPicksNearestCell(t *testing.T) {
	dir := t.TempDir()
	writeGridCSV(t, dir, "ssp245", "rsds_day_ACCESS-CM2_ssp245_2050.csv", [][]string{
		{"2050-01-01", "-15.5", "-56.0", "210"},
		{"2050-01-01", "-16.5", "-57.0", "999"},
		{"2050-01-02", "-15.5", "-56.0", "230"},
		{"2050-01-02", "-16.5", "-57.0", "999"},
	})

	reader := gridreader.NewCSVReader(dir)
	samples, err := reader.ReadDailySeries(context.Background(), "ACCESS-CM2", model.VarRsds, "ssp245", 2050,
		model.Location{Lat: -15.6, Lon: -56.1})
	require.NoError(t, err)

	require.Len(t, samples, 2)
	for _, s := range samples {
		assert.Equal(t, -15.5, s.Lat)
		assert.Equal(t, -56.0, s.Lon)
	}
	assert.Equal(t, 210.0, samples[0].Value)
	assert.Equal(t, 230.0, samples[1].Value)
}

func TestCSVReaderNormalizesLongitudeConvention(t *testing.T) {
	dir := t.TempDir()
	// Grid on a 0-360 longitude convention; -56.1 maps to 303.9.
	writeGridCSV(t, dir, "ssp245", "rsds_day_ACCESS-CM2_ssp245_2050.csv", [][]string{
		{"2050-01-01", "-15.5", "304.0", "210"},
		{"2050-01-01", "-15.5", "10.0", "999"},
	})

	reader := gridreader.NewCSVReader(dir)
	samples, err := reader.ReadDailySeries(context.Background(), "ACCESS-CM2", model.VarRsds, "ssp245", 2050,
		model.Location{Lat: -15.6, Lon: -56.1})
	require.NoError(t, err)

	require.Len(t, samples, 1)
	assert.Equal(t, 210.0, samples[0].Value)
}

func TestCSVReaderMissingFileIsDataUnavailable(t *testing.T) {
	reader := gridreader.NewCSVReader(t.TempDir())
	_, err := reader.ReadDailySeries(context.Background(), "ACCESS-CM2", model.VarRsds, "ssp245", 2050, model.Location{})
	require.Error(t, err)
	assert.True(t, exception.IsDataUnavailable(err))
}

func TestCSVReaderBadHeaderIsDataUnavailable(t *testing.T) {
	dir := t.TempDir()
	scenarioDir := filepath.Join(dir, "ssp245")
	require.NoError(t, os.MkdirAll(scenarioDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(scenarioDir, "rsds_day_ACCESS-CM2_ssp245_2050.csv"),
		[]byte("time,latitude,longitude,val\n2050-01-01,0,0,1\n"), 0o644))

	reader := gridreader.NewCSVReader(dir)
	_, err := reader.ReadDailySeries(context.Background(), "ACCESS-CM2", model.VarRsds, "ssp245", 2050, model.Location{})
	require.Error(t, err)
	assert.True(t, exception.IsDataUnavailable(err))
}
