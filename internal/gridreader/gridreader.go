// Package gridreader reads gridded daily climate-model output for one
// (model, variable, scenario, year) and reduces it to per-month values at the
// grid cell nearest to a target location. Readers for different file formats
// sit behind one interface and are tried in rank order until one succeeds.
package gridreader

import (
	"context"
	"math"
	"time"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "gridreader"

// Sample is one daily grid value at one grid cell.
type Sample struct {
	Time  time.Time
	Lat   float64
	Lon   float64
	Value float64
}

// Reader reads the daily series of one variable for one year at the grid cell
// nearest to loc. Implementations return a DataUnavailable error when the
// backing file for the requested combination does not exist or is unreadable.
type Reader interface {
	// Name identifies the reader in logs ("parquet", "csv").
	Name() string
	// ReadDailySeries returns all daily samples of the nearest grid cell for
	// the given year, in file order.
	ReadDailySeries(ctx context.Context, model string, variable model.Variable, scenario string, year int, loc model.Location) ([]Sample, error)
}

// Chain tries a ranked list of readers in order until one succeeds. A reader
// failing with DataUnavailable passes the attempt to the next; any other
// error aborts immediately.
type Chain struct {
	readers []Reader
}

// NewChain builds a Chain over the given readers, highest rank first.
func NewChain(readers ...Reader) *Chain {
	return &Chain{readers: readers}
}

var _ Reader = (*Chain)(nil)

// Name identifies the chain in logs.
func (c *Chain) Name() string { return "chain" }

// ReadDailySeries delegates to the ranked readers in order.
func (c *Chain) ReadDailySeries(ctx context.Context, climateModel string, variable model.Variable, scenario string, year int, loc model.Location) ([]Sample, error) {
	var lastErr error
	for _, r := range c.readers {
		samples, err := r.ReadDailySeries(ctx, climateModel, variable, scenario, year, loc)
		if err == nil {
			return samples, nil
		}
		if !exception.IsDataUnavailable(err) {
			return nil, err
		}
		logger.Debugf("Grid reader '%s' has no data for %s/%s/%s/%d, trying next.", r.Name(), climateModel, variable, scenario, year)
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, exception.Newf(moduleName, exception.KindDataUnavailable, "no grid reader configured")
}

// MonthlyMeans reduces daily samples to the mean per calendar month. Months
// with zero contributing samples fail with DataUnavailable.
func MonthlyMeans(samples []Sample, variable model.Variable, year int) (model.MonthlySeries, error) {
	var sums, counts [12]float64
	for _, s := range samples {
		m := int(s.Time.Month()) - 1
		if !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0) {
			sums[m] += s.Value
			counts[m]++
		}
	}

	var out model.MonthlySeries
	for m := 0; m < 12; m++ {
		if counts[m] == 0 {
			return out, exception.Newf(moduleName, exception.KindDataUnavailable,
				"no %s samples for month %d of year %d", variable, m+1, year)
		}
		out[m] = sums[m] / counts[m]
	}
	return out, nil
}

// normalizeLon maps the target longitude onto the grid's longitude
// convention: files on a 0-360 grid receive a shifted target when the
// configured longitude is negative, and vice versa.
func normalizeLon(targetLon, gridMinLon, gridMaxLon float64) float64 {
	if gridMinLon >= 0 && targetLon < 0 {
		return targetLon + 360
	}
	if gridMaxLon <= 180 && targetLon > 180 {
		return targetLon - 360
	}
	return targetLon
}

// nearestCell picks the grid coordinate minimizing squared distance to the
// target location over the distinct (lat, lon) pairs present in the samples.
func nearestCell(samples []Sample, loc model.Location) (lat, lon float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, false
	}

	minLon, maxLon := samples[0].Lon, samples[0].Lon
	for _, s := range samples {
		if s.Lon < minLon {
			minLon = s.Lon
		}
		if s.Lon > maxLon {
			maxLon = s.Lon
		}
	}
	targetLon := normalizeLon(loc.Lon, minLon, maxLon)

	best := math.Inf(1)
	for _, s := range samples {
		dLat := s.Lat - loc.Lat
		dLon := s.Lon - targetLon
		d := dLat*dLat + dLon*dLon
		if d < best {
			best = d
			lat, lon = s.Lat, s.Lon
		}
	}
	return lat, lon, true
}

// filterCell keeps only the samples belonging to one grid coordinate.
func filterCell(samples []Sample, lat, lon float64) []Sample {
	out := samples[:0:0]
	for _, s := range samples {
		if s.Lat == lat && s.Lon == lon {
			out = append(out, s)
		}
	}
	return out
}
