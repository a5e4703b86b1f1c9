// Package validate checks the structural and physical invariants of a morphed
// hourly profile before it is handed to the yield simulator. Structural
// violations fail hard; physical-range and consistency findings are advisory
// flags in the report.
package validate

import (
	"math"
	"time"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "validate"

// Validator applies the hard checks and the advisory thresholds from
// configuration.
type Validator struct {
	cfg *config.Config
}

// NewValidator creates a Validator.
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate checks, in order: exact row count with strictly increasing
// timestamps and no duplicates; finite values in every required field; the
// GHI vs DNI+DHI consistency statistics; and per-field physical range flags.
// Only the first two are hard failures.
func (v *Validator) Validate(p *model.HourlyProfile) (*model.ValidationReport, error) {
	if p.Len() != model.HoursPerYear {
		return nil, exception.Newf(moduleName, exception.KindStructural,
			"profile has %d rows (expected %d)", p.Len(), model.HoursPerYear)
	}

	var prev time.Time
	for i, r := range p.Records {
		if i > 0 && !r.Time.After(prev) {
			return nil, exception.Newf(moduleName, exception.KindStructural,
				"profile timestamps are not strictly increasing at row %d (%s -> %s)", i, prev, r.Time)
		}
		prev = r.Time

		for _, f := range []struct {
			name  string
			value float64
		}{
			{"GHI", r.GHI}, {"DNI", r.DNI}, {"DHI", r.DHI},
			{"TempC", r.TempC}, {"WindSpeed", r.WindSpeed}, {"RelHum", r.RelHum},
		} {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				return nil, exception.Newf(moduleName, exception.KindStructural,
					"profile has a non-finite %s at row %d", f.name, i)
			}
		}
	}

	vc := v.cfg.Heliomorph.Validation
	report := &model.ValidationReport{
		Rows:       p.Len(),
		RangeFlags: make(map[string]int),
	}

	// Consistency of GHI against DNI+DHI over lit hours.
	var absErrSum, absPctSum float64
	for _, r := range p.Records {
		if r.GHI <= vc.ConsistencyEpsilonWm2 {
			continue
		}
		diff := math.Abs(r.GHI - (r.DNI + r.DHI))
		absErrSum += diff
		absPctSum += diff / r.GHI * 100
		report.HoursChecked++
	}
	if report.HoursChecked > 0 {
		report.ConsistencyMAE = absErrSum / float64(report.HoursChecked)
		report.ConsistencyMAPE = absPctSum / float64(report.HoursChecked)
		report.ConsistencyFlagged = report.ConsistencyMAPE > vc.MAPEThresholdPct
	}

	// Physical range flags. Advisory only: real extreme weather can
	// legitimately exceed the soft bounds.
	for _, r := range p.Records {
		if r.TempC < vc.TempMinC || r.TempC > vc.TempMaxC {
			report.RangeFlags["TempC"]++
		}
		if r.WindSpeed < 0 || r.WindSpeed > vc.WindMaxMs {
			report.RangeFlags["WindSpeed"]++
		}
		if r.RelHum < 0 || r.RelHum > 100 {
			report.RangeFlags["RelHum"]++
		}
		if r.GHI < 0 || r.DNI < 0 || r.DHI < 0 {
			report.RangeFlags["Irradiance"]++
		}
	}

	if report.Flagged() {
		logger.Warnf("Profile for year %d carries advisory flags: MAPE=%.2f%% (threshold %.2f%%), range flags=%v.",
			p.Year(), report.ConsistencyMAPE, vc.MAPEThresholdPct, report.RangeFlags)
	}

	return report, nil
}
