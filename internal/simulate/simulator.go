// Package simulate defines the yield-simulator boundary and a built-in
// PVWatts-style estimator. The simulator is opaque to the pipeline: it maps a
// validated profile artifact to annual energy and capacity factor, or fails
// with a SimulationError that the pipeline records as an ERROR row.
package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/profile"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "simulate"

// YieldResult is the simulator output for one profile.
type YieldResult struct {
	AnnualEnergyMWh  float64
	CapacityFactor   float64
	MonthlyEnergyKWh []float64
}

// YieldSimulator maps a profile artifact path and a system description to
// yield metrics.
type YieldSimulator interface {
	SimulateYield(ctx context.Context, profilePath string, sys config.SimulationConfig) (*YieldResult, error)
}

// Module-level cell temperature model constants (NOCT approach).
const (
	noctC        = 45.0
	noctIrr      = 800.0
	noctAmbient  = 20.0
	stcCellTempC = 25.0
	// tempCoeff is the power temperature coefficient per degree C.
	tempCoeff = -0.0047
)

// Estimator is the built-in yield simulator. It applies a transposition-free
// PVWatts-style chain: GHI to DC power with cell-temperature derating, then
// fixed losses, inverter efficiency and AC clipping at the inverter rating.
type Estimator struct {
	conn storage.StorageConnection
}

// NewEstimator creates an Estimator reading profile artifacts from the
// artifact storage connection.
func NewEstimator(conn storage.StorageConnection) YieldSimulator {
	return &Estimator{conn: conn}
}

// SimulateYield reads the profile back from storage and integrates hourly AC
// power over the year.
func (e *Estimator) SimulateYield(ctx context.Context, profilePath string, sys config.SimulationConfig) (*YieldResult, error) {
	bucket, object, err := splitArtifactPath(profilePath)
	if err != nil {
		return nil, err
	}

	rc, err := e.conn.Download(ctx, bucket, object)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindSimulation,
			fmt.Sprintf("failed to open profile artifact '%s'", profilePath), err)
	}
	defer rc.Close()

	p, err := profile.Parse(rc)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindSimulation,
			fmt.Sprintf("profile artifact '%s' is not simulatable", profilePath), err)
	}

	if sys.SystemCapacityKW <= 0 {
		return nil, exception.Newf(moduleName, exception.KindSimulation,
			"system capacity must be positive, got %g kW", sys.SystemCapacityKW)
	}

	acRatingKW := sys.SystemCapacityKW
	if sys.DCACRatio > 0 {
		acRatingKW = sys.SystemCapacityKW / sys.DCACRatio
	}
	lossFactor := 1 - sys.LossesPct/100
	invEff := sys.InverterEffPct / 100
	if invEff <= 0 {
		invEff = 1
	}

	monthly := make([]float64, 12)
	var annualKWh float64
	for _, r := range p.Records {
		if r.GHI <= 0 {
			continue
		}

		cellTemp := r.TempC + (noctC-noctAmbient)/noctIrr*r.GHI
		dcKW := sys.SystemCapacityKW * (r.GHI / 1000) * (1 + tempCoeff*(cellTemp-stcCellTempC))
		if dcKW < 0 {
			dcKW = 0
		}

		acKW := dcKW * lossFactor * invEff
		if acKW > acRatingKW {
			acKW = acRatingKW
		}

		monthly[int(r.Time.Month())-1] += acKW
		annualKWh += acKW
	}

	cf := annualKWh / (sys.SystemCapacityKW * float64(model.HoursPerYear))

	logger.Debugf("Simulated '%s': %.1f MWh, CF %.4f.", profilePath, annualKWh/1000, cf)
	return &YieldResult{
		AnnualEnergyMWh:  annualKWh / 1000,
		CapacityFactor:   cf,
		MonthlyEnergyKWh: monthly,
	}, nil
}

// splitArtifactPath splits a logical artifact path "bucket/object...".
func splitArtifactPath(path string) (bucket, object string, err error) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", exception.Newf(moduleName, exception.KindSimulation,
			"invalid profile artifact path '%s'", path)
	}
	return parts[0], parts[1], nil
}
