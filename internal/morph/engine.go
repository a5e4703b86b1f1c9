// Package morph implements the monthly delta-change morphing engine: it
// derives per-month transform parameters from future monthly values against
// the historical climatology and applies them hour-by-hour to the observed
// base profile.
package morph

import (
	"math"
	"time"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "morph"

// fracEps guards the DNI fraction against division by zero on dark hours.
const fracEps = 1e-6

// Inputs carries everything one morph run consumes. Climatologies and future
// monthly values are keyed by variable; the humidity entries may be nil, in
// which case a zero humidity offset is applied and flagged.
type Inputs struct {
	Base          *model.HourlyProfile
	Climatologies map[model.Variable]*model.MonthlyClimatology
	FutureMonthly map[model.Variable]*model.MonthlySeries
	TargetYear    int
}

// Result is the morphed profile plus transform metadata.
type Result struct {
	Profile *model.HourlyProfile
	// Deltas are the per-variable transform parameters actually applied.
	Deltas map[model.Variable]model.MonthlyDelta
	// HumidityFallback is set when the humidity driver was unavailable and a
	// zero offset was substituted. Explicit, documented degradation.
	HumidityFallback bool
}

// Engine applies delta-change morphing. It is stateless and safe for
// concurrent use.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Morph transforms the base profile onto the target year using monthly
// deltas. Radiation and wind are scaled multiplicatively, temperature and
// humidity shifted additively. DNI and DHI are rebuilt from the morphed GHI
// so the base profile's DNI/GHI fraction is preserved hour by hour, keeping
// GHI ~= DNI + DHI intact wherever it held before.
func (e *Engine) Morph(in Inputs) (*Result, error) {
	if in.Base.Len() != model.HoursPerYear {
		return nil, exception.Newf(moduleName, exception.KindStructural,
			"base profile has %d rows (expected %d)", in.Base.Len(), model.HoursPerYear)
	}

	deltas, humidityFallback, err := deriveDeltas(in)
	if err != nil {
		return nil, err
	}

	kRsds := deltas[model.VarRsds].Values
	dTas := deltas[model.VarTas].Values
	kWspd := deltas[model.VarSfcWind].Values
	dHurs := deltas[model.VarHurs].Values

	records := make([]model.HourlyRecord, len(in.Base.Records))
	for i, r := range in.Base.Records {
		month := r.Time.Month()

		ghi := r.GHI * kRsds.Value(month)
		if ghi < 0 {
			ghi = 0
		}

		// The base hour's direct fraction carries over unchanged.
		frac := r.DNI / (r.GHI + fracEps)
		if math.IsNaN(frac) || frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}
		dni := ghi * frac
		dhi := ghi * (1 - frac)

		wind := r.WindSpeed * kWspd.Value(month)
		if wind < 0 {
			wind = 0
		}

		hum := r.RelHum + dHurs.Value(month)
		if hum < 0 {
			hum = 0
		} else if hum > 100 {
			hum = 100
		}

		records[i] = model.HourlyRecord{
			Time:      reindex(r.Time, in.TargetYear),
			GHI:       ghi,
			DNI:       dni,
			DHI:       dhi,
			TempC:     r.TempC + dTas.Value(month),
			WindSpeed: wind,
			RelHum:    hum,
		}
	}

	if humidityFallback {
		logger.Warnf("Humidity driver unavailable for year %d, applied zero offset.", in.TargetYear)
	}

	return &Result{
		Profile:          &model.HourlyProfile{Records: records},
		Deltas:           deltas,
		HumidityFallback: humidityFallback,
	}, nil
}

// deriveDeltas builds the per-variable monthly transform parameters. Missing
// drivers are fatal except humidity, which degrades to a zero offset.
func deriveDeltas(in Inputs) (map[model.Variable]model.MonthlyDelta, bool, error) {
	deltas := make(map[model.Variable]model.MonthlyDelta, len(model.Variables))
	humidityFallback := false

	for _, v := range model.Variables {
		clim := in.Climatologies[v]
		fut := in.FutureMonthly[v]

		if clim == nil || fut == nil {
			if v == model.VarHurs {
				deltas[v] = model.MonthlyDelta{Variable: v, Kind: model.DeltaOffset}
				humidityFallback = true
				continue
			}
			return nil, false, exception.Newf(moduleName, exception.KindMorph,
				"required monthly driver %s is missing for year %d", v, in.TargetYear)
		}

		var values model.MonthlySeries
		switch v {
		case model.VarRsds, model.VarSfcWind:
			for m := 0; m < 12; m++ {
				k := fut[m] / clim.Values[m]
				if math.IsNaN(k) || math.IsInf(k, 0) {
					return nil, false, exception.Newf(moduleName, exception.KindMorph,
						"%s factor for month %d is not finite (future=%g, climatology=%g)",
						v, m+1, fut[m], clim.Values[m])
				}
				values[m] = k
			}
			deltas[v] = model.MonthlyDelta{Variable: v, Kind: model.DeltaFactor, Values: values}
		case model.VarTas, model.VarHurs:
			for m := 0; m < 12; m++ {
				d := fut[m] - clim.Values[m]
				if math.IsNaN(d) || math.IsInf(d, 0) {
					return nil, false, exception.Newf(moduleName, exception.KindMorph,
						"%s offset for month %d is not finite (future=%g, climatology=%g)",
						v, m+1, fut[m], clim.Values[m])
				}
				values[m] = d
			}
			deltas[v] = model.MonthlyDelta{Variable: v, Kind: model.DeltaOffset, Values: values}
		}
	}

	return deltas, humidityFallback, nil
}

// reindex maps an hourly slot onto the target calendar year, keeping month,
// day and hour. The base profile never carries February 29, so the result is
// always a valid 8760-slot grid even when the target year is a leap year.
func reindex(t time.Time, targetYear int) time.Time {
	return time.Date(targetYear, t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
