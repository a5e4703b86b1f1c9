package simulate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/profile"
	"github.com/camposclima/heliomorph/internal/simulate"
	"github.com/camposclima/heliomorph/internal/storage"
	localstorage "github.com/camposclima/heliomorph/internal/storage/local"
	"github.com/camposclima/heliomorph/pkg/support/exception"
)

func newConn(t *testing.T) storage.StorageConnection {
	t.Helper()
	conn, err := localstorage.NewLocalConnection(config.StorageConfig{
		Type:    "local",
		BaseDir: t.TempDir(),
	}, "artifacts")
	require.NoError(t, err)
	return conn
}

// writeConstantProfile stores a full-year profile with the same conditions on
// every hour and returns its artifact path.
func writeConstantProfile(t *testing.T, conn storage.StorageConnection, ghi, tempC float64) string {
	t.Helper()
	records := make([]model.HourlyRecord, 0, model.HoursPerYear)
	ts := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	for len(records) < model.HoursPerYear {
		records = append(records, model.HourlyRecord{
			Time:      ts,
			GHI:       ghi,
			DNI:       ghi * 0.7,
			DHI:       ghi * 0.3,
			TempC:     tempC,
			WindSpeed: 3,
			RelHum:    60,
		})
		ts = ts.Add(time.Hour)
	}
	path, err := profile.NewStore(conn).Write(context.Background(), "ACCESS-CM2", "ssp245", 2050,
		&model.HourlyProfile{Records: records})
	require.NoError(t, err)
	return path
}

func TestSimulateYieldAppliesTemperatureDerating(t *testing.T) {
	conn := newConn(t)
	path := writeConstantProfile(t, conn, 1000, 25)

	sys := config.SimulationConfig{
		SystemCapacityKW: 1000,
		DCACRatio:        1.25,
		LossesPct:        14,
		InverterEffPct:   96,
	}
	res, err := simulate.NewEstimator(conn).SimulateYield(context.Background(), path, sys)
	require.NoError(t, err)

	// Cell temp 56.25 C derates DC to 853.125 kW; after losses and inverter
	// efficiency AC is 704.34 kW, below the 800 kW rating.
	assert.InDelta(t, 704.34*float64(model.HoursPerYear)/1000, res.AnnualEnergyMWh, 0.01)
	assert.InDelta(t, 0.70434, res.CapacityFactor, 1e-4)
}

func TestSimulateYieldClipsAtInverterRating(t *testing.T) {
	conn := newConn(t)
	path := writeConstantProfile(t, conn, 1000, 25)

	sys := config.SimulationConfig{
		SystemCapacityKW: 1000,
		DCACRatio:        2,
		LossesPct:        0,
		InverterEffPct:   100,
	}
	res, err := simulate.NewEstimator(conn).SimulateYield(context.Background(), path, sys)
	require.NoError(t, err)

	// DC output is 853 kW but the AC rating is 500 kW; every hour clips.
	assert.InDelta(t, 500*float64(model.HoursPerYear)/1000, res.AnnualEnergyMWh, 1e-6)
	assert.InDelta(t, 0.5, res.CapacityFactor, 1e-9)
}

func TestSimulateYieldSkipsDarkHours(t *testing.T) {
	conn := newConn(t)
	path := writeConstantProfile(t, conn, 0, 25)

	sys := config.SimulationConfig{SystemCapacityKW: 1000, InverterEffPct: 96}
	res, err := simulate.NewEstimator(conn).SimulateYield(context.Background(), path, sys)
	require.NoError(t, err)

	assert.Zero(t, res.AnnualEnergyMWh)
	assert.Zero(t, res.CapacityFactor)
}

func TestSimulateYieldMonthlyBucketsSumToAnnual(t *testing.T) {
	conn := newConn(t)
	path := writeConstantProfile(t, conn, 600, 20)

	sys := config.SimulationConfig{
		SystemCapacityKW: 1000,
		DCACRatio:        1.25,
		LossesPct:        14,
		InverterEffPct:   96,
	}
	res, err := simulate.NewEstimator(conn).SimulateYield(context.Background(), path, sys)
	require.NoError(t, err)

	require.Len(t, res.MonthlyEnergyKWh, 12)
	var sum float64
	for _, m := range res.MonthlyEnergyKWh {
		sum += m
	}
	assert.InDelta(t, res.AnnualEnergyMWh*1000, sum, 1e-6)
}

func TestSimulateYieldRejectsBadArtifactPath(t *testing.T) {
	conn := newConn(t)
	sys := config.SimulationConfig{SystemCapacityKW: 1000}

	_, err := simulate.NewEstimator(conn).SimulateYield(context.Background(), "noslash", sys)
	require.Error(t, err)
	assert.True(t, exception.IsSimulation(err))
}

func TestSimulateYieldMissingArtifactFails(t *testing.T) {
	conn := newConn(t)
	sys := config.SimulationConfig{SystemCapacityKW: 1000}

	_, err := simulate.NewEstimator(conn).SimulateYield(context.Background(), "profiles/missing.csv", sys)
	require.Error(t, err)
	assert.True(t, exception.IsSimulation(err))
}

func TestSimulateYieldRejectsZeroCapacity(t *testing.T) {
	conn := newConn(t)
	path := writeConstantProfile(t, conn, 500, 25)

	_, err := simulate.NewEstimator(conn).SimulateYield(context.Background(), path, config.SimulationConfig{})
	require.Error(t, err)
	assert.True(t, exception.IsSimulation(err))
}

func TestLogStoreRoundTrip(t *testing.T) {
	conn := newConn(t)
	store := simulate.NewLogStore(conn)
	ctx := context.Background()

	// No log yet.
	rec, err := store.Read(ctx, "ssp245", 2050)
	require.NoError(t, err)
	assert.Nil(t, rec)

	in := &model.SimulationLogRecord{
		Model:           "ACCESS-CM2",
		Scenario:        "ssp245",
		Year:            2050,
		Status:          model.LogOK,
		AnnualEnergyMWh: 1234.5,
		CapacityFactor:  0.21,
		ElapsedS:        2.5,
	}
	require.NoError(t, store.Write(ctx, in))

	rec, err = store.Read(ctx, "ssp245", 2050)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.LogOK, rec.Status)
	assert.InDelta(t, 1234.5, rec.AnnualEnergyMWh, 1e-9)
	assert.Equal(t, "logs/log_ssp245_2050.json", store.Path("ssp245", 2050))
}
