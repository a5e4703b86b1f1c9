// Package profile loads, normalizes and writes hourly meteorological
// profiles. Every profile carries the header
// DateTime,GHI,DNI,DHI,TempC,WindSpeed,RelHum and exactly 8760 data rows.
package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "profile"

// Columns is the canonical profile column order.
var Columns = []string{"DateTime", "GHI", "DNI", "DHI", "TempC", "WindSpeed", "RelHum"}

// timeLayouts lists the timestamp formats accepted in base profile sources.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// Loader parses base-year hourly profiles and applies the irradiance
// auto-scale correction.
type Loader struct {
	cfg *config.Config
}

// NewLoader creates a Loader.
func NewLoader(cfg *config.Config) *Loader {
	return &Loader{cfg: cfg}
}

// Parse reads an hourly profile CSV without normalization: rows are sorted,
// a leap-year February 29 is dropped and the 8760-row invariant is enforced,
// but irradiance is left untouched. Used to read back emitted artifacts.
func Parse(r io.Reader) (*model.HourlyProfile, error) {
	records, err := parseRows(r)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Time.Before(records[j].Time) })

	if len(records) == model.HoursPerYear+24 {
		records = dropFeb29(records)
	}
	if len(records) != model.HoursPerYear {
		return nil, exception.Newf(moduleName, exception.KindStructural,
			"profile has %d rows (expected %d)", len(records), model.HoursPerYear)
	}
	return &model.HourlyProfile{Records: records}, nil
}

// Load parses an hourly profile CSV, coerces all required columns to numeric,
// drops a February 29 record when the source holds a leap year (8784 rows)
// and fails with a structural error if the result is not exactly 8760 finite
// rows. Irradiance is rescaled by the configured override or the
// auto-detected scale; the applied scale is logged, never silent.
func (l *Loader) Load(r io.Reader) (*model.HourlyProfile, error) {
	records, err := parseRows(r)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Time.Before(records[j].Time) })

	if len(records) == model.HoursPerYear+24 {
		records = dropFeb29(records)
	}
	if len(records) != model.HoursPerYear {
		return nil, exception.Newf(moduleName, exception.KindStructural,
			"base profile has %d rows (expected %d)", len(records), model.HoursPerYear)
	}
	// Strictly increasing is the invariant here, not perfect contiguity: a
	// leap-year source legitimately has a one-day gap after Feb 29 removal.
	for i := 1; i < len(records); i++ {
		if !records[i].Time.After(records[i-1].Time) {
			return nil, exception.Newf(moduleName, exception.KindStructural,
				"base profile timestamps are not strictly increasing at row %d (%s -> %s)",
				i, records[i-1].Time, records[i].Time)
		}
	}

	scale := l.cfg.Heliomorph.Morph.IrradianceScale
	if scale <= 0 {
		scale = guessIrradianceScale(records, l.cfg.Heliomorph.Morph.TargetPeakWm2)
		logger.Infof("Auto-detected irradiance scale %.4f (target peak %.0f W/m2).",
			scale, l.cfg.Heliomorph.Morph.TargetPeakWm2)
	} else {
		logger.Infof("Using configured irradiance scale %.4f.", scale)
	}
	if math.Abs(scale-1.0) > 1e-6 {
		for i := range records {
			records[i].GHI *= scale
			records[i].DNI *= scale
			records[i].DHI *= scale
		}
	}

	return &model.HourlyProfile{Records: records}, nil
}

// parseRows reads the CSV rows into hourly records, failing structurally on
// missing columns, unparseable timestamps or non-finite values.
func parseRows(r io.Reader) ([]model.HourlyRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, exception.New(moduleName, exception.KindStructural, "base profile has no header", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, exception.Newf(moduleName, exception.KindStructural, "base profile is missing column %s", col)
		}
	}

	var records []model.HourlyRecord
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, exception.New(moduleName, exception.KindStructural,
				fmt.Sprintf("base profile is malformed at data row %d", row), err)
		}
		row++

		t, err := parseTime(rec[idx["DateTime"]])
		if err != nil {
			return nil, exception.New(moduleName, exception.KindStructural,
				fmt.Sprintf("base profile has a bad DateTime at data row %d", row), err)
		}

		var vals [6]float64
		for i, col := range Columns[1:] {
			v, err := parseNumeric(rec[idx[col]])
			if err != nil {
				return nil, exception.New(moduleName, exception.KindStructural,
					fmt.Sprintf("base profile has a bad %s at data row %d", col, row), err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, exception.Newf(moduleName, exception.KindStructural,
					"base profile has a non-finite %s at data row %d", col, row)
			}
			vals[i] = v
		}

		records = append(records, model.HourlyRecord{
			Time:      t.Truncate(time.Hour),
			GHI:       vals[0],
			DNI:       vals[1],
			DHI:       vals[2],
			TempC:     vals[3],
			WindSpeed: vals[4],
			RelHum:    vals[5],
		})
	}
	return records, nil
}

// parseTime tries the accepted timestamp layouts in order.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseNumeric coerces a raw cell to float64, tolerating a decimal comma and
// non-breaking spaces from spreadsheet exports.
func parseNumeric(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// dropFeb29 removes the 24 February 29 records of a leap-year source.
func dropFeb29(records []model.HourlyRecord) []model.HourlyRecord {
	out := records[:0:0]
	for _, r := range records {
		if r.Time.Month() == time.February && r.Time.Day() == 29 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// guessIrradianceScale derives a uniform irradiance correction from the 95th
// percentile of observed GHI against the physically expected clear-sky peak.
// The result is clamped to [0.1, 100].
func guessIrradianceScale(records []model.HourlyRecord, targetPeak float64) float64 {
	ghi := make([]float64, 0, len(records))
	for _, r := range records {
		if !math.IsNaN(r.GHI) && !math.IsInf(r.GHI, 0) {
			ghi = append(ghi, r.GHI)
		}
	}
	if len(ghi) == 0 {
		return 1.0
	}

	p95 := percentile(ghi, 95)
	if math.IsNaN(p95) || p95 <= 0 {
		return 1.0
	}

	scale := targetPeak / p95
	if scale < 0.1 {
		scale = 0.1
	}
	if scale > 100 {
		scale = 100
	}
	return scale
}

// percentile computes the p-th percentile by linear interpolation over the
// sorted values.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
