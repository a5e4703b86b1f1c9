package consolidate_test

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/consolidate"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/profile"
	"github.com/camposclima/heliomorph/internal/simulate"
	"github.com/camposclima/heliomorph/internal/storage"
	localstorage "github.com/camposclima/heliomorph/internal/storage/local"
)

func runConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Heliomorph.Run.Model = "ACCESS-CM2"
	cfg.Heliomorph.Run.Scenarios = []string{"ssp245", "ssp585"}
	cfg.Heliomorph.Run.Years = config.YearRange{From: 2050, To: 2054}
	cfg.Heliomorph.Run.HistoricalCutoffYear = 2015
	return cfg
}

func newConsolidator(t *testing.T, cfg *config.Config) (*consolidate.Consolidator, storage.StorageConnection) {
	t.Helper()
	conn, err := localstorage.NewLocalConnection(config.StorageConfig{
		Type:    "local",
		BaseDir: t.TempDir(),
	}, "artifacts")
	require.NoError(t, err)
	return consolidate.NewConsolidator(cfg, profile.NewStore(conn), simulate.NewLogStore(conn), conn), conn
}

func putProfile(t *testing.T, conn storage.StorageConnection, scenario string, year int) {
	t.Helper()
	name := profile.FileName("ACCESS-CM2", scenario, year)
	require.NoError(t, conn.Upload(context.Background(), "profiles", name,
		strings.NewReader("Time,GHI\n"), "text/csv"))
}

func putLog(t *testing.T, conn storage.StorageConnection, rec *model.SimulationLogRecord) {
	t.Helper()
	require.NoError(t, simulate.NewLogStore(conn).Write(context.Background(), rec))
}

func TestExpectedPairsRoutesHistoricalYears(t *testing.T) {
	run := &config.RunConfig{
		Model:                "ACCESS-CM2",
		Scenarios:            []string{"ssp245", "ssp585"},
		Years:                config.YearRange{From: 2013, To: 2016},
		HistoricalCutoffYear: 2015,
	}

	pairs := consolidate.ExpectedPairs(run)

	assert.Equal(t, []model.Pair{
		{Scenario: "historical", Year: 2013},
		{Scenario: "historical", Year: 2014},
		{Scenario: "ssp245", Year: 2015},
		{Scenario: "ssp245", Year: 2016},
		{Scenario: "ssp585", Year: 2015},
		{Scenario: "ssp585", Year: 2016},
	}, pairs)
}

func TestExpectedPairsAllHistoricalDeduplicates(t *testing.T) {
	run := &config.RunConfig{
		Scenarios:            []string{"ssp245", "ssp585"},
		Years:                config.YearRange{From: 2000, To: 2001},
		HistoricalCutoffYear: 2015,
	}

	pairs := consolidate.ExpectedPairs(run)
	assert.Equal(t, []model.Pair{
		{Scenario: "historical", Year: 2000},
		{Scenario: "historical", Year: 2001},
	}, pairs)
}

func TestConsolidateClassifiesAllStatuses(t *testing.T) {
	cfg := runConfig()
	cfg.Heliomorph.Run.Scenarios = []string{"ssp245"}
	cfg.Heliomorph.Run.Years = config.YearRange{From: 2050, To: 2054}
	c, conn := newConsolidator(t, cfg)
	ctx := context.Background()

	// 2050: profile + OK log.
	putProfile(t, conn, "ssp245", 2050)
	putLog(t, conn, &model.SimulationLogRecord{
		Model: "ACCESS-CM2", Scenario: "ssp245", Year: 2050,
		Status: model.LogOK, AnnualEnergyMWh: 1234.5, CapacityFactor: 0.21, ElapsedS: 2.5,
	})
	// 2051: profile + ERROR log.
	putProfile(t, conn, "ssp245", 2051)
	putLog(t, conn, &model.SimulationLogRecord{
		Model: "ACCESS-CM2", Scenario: "ssp245", Year: 2051,
		Status: model.LogError, ErrorMessage: "simulation exploded",
	})
	// 2052: profile only.
	putProfile(t, conn, "ssp245", 2052)
	// 2053: OK log but no profile.
	putLog(t, conn, &model.SimulationLogRecord{
		Model: "ACCESS-CM2", Scenario: "ssp245", Year: 2053,
		Status: model.LogOK, AnnualEnergyMWh: 999,
	})
	// 2054: nothing.

	records, err := c.Consolidate(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 5)

	byYear := make(map[int]model.ConsolidatedRecord)
	for _, r := range records {
		byYear[r.Year] = r
	}

	ok := byYear[2050]
	assert.Equal(t, model.StatusOK, ok.LogStatus)
	require.NotNil(t, ok.AnnualMWh)
	assert.InDelta(t, 1234.5, *ok.AnnualMWh, 1e-9)
	require.NotNil(t, ok.CapacityFactor)
	assert.InDelta(t, 0.21, *ok.CapacityFactor, 1e-9)
	assert.Equal(t, "profiles/SAM_ACCESS-CM2_ssp245_2050_morph.csv", ok.ProfilePath)
	assert.Equal(t, "logs/log_ssp245_2050.json", ok.LogPath)
	assert.Equal(t, "run-1", ok.RunID)

	failed := byYear[2051]
	assert.Equal(t, model.StatusError, failed.LogStatus)
	assert.Equal(t, "simulation exploded", failed.LogMessage)
	assert.Nil(t, failed.AnnualMWh)

	assert.Equal(t, model.StatusMissingLog, byYear[2052].LogStatus)

	untrusted := byYear[2053]
	assert.Equal(t, model.StatusError, untrusted.LogStatus)
	assert.Contains(t, untrusted.LogMessage, "profile artifact is missing")
	assert.Nil(t, untrusted.AnnualMWh)

	assert.Equal(t, model.StatusNotRun, byYear[2054].LogStatus)
}

func TestConsolidateWritesSortedCSVArtifact(t *testing.T) {
	cfg := runConfig()
	cfg.Heliomorph.Run.Years = config.YearRange{From: 2050, To: 2051}
	c, conn := newConsolidator(t, cfg)
	ctx := context.Background()

	records, err := c.Consolidate(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, records, 4)

	// Ordered by (scenario, year).
	assert.Equal(t, "ssp245", records[0].Scenario)
	assert.Equal(t, 2050, records[0].Year)
	assert.Equal(t, "ssp585", records[3].Scenario)
	assert.Equal(t, 2051, records[3].Year)

	rc, err := conn.Download(ctx, "", "consolidated.csv")
	require.NoError(t, err)
	defer rc.Close()

	rows, err := csv.NewReader(rc).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{
		"model", "scenario", "year", "annual_mwh", "capacity_factor",
		"elapsed_s", "profile_path", "log_status", "log_message",
	}, rows[0])
	assert.Equal(t, "NOT_RUN", rows[1][7])
}

func TestConsolidateStampsCreationTime(t *testing.T) {
	cfg := runConfig()
	cfg.Heliomorph.Run.Scenarios = []string{"ssp245"}
	cfg.Heliomorph.Run.Years = config.YearRange{From: 2050, To: 2050}
	c, _ := newConsolidator(t, cfg)

	before := time.Now().UTC()
	records, err := c.Consolidate(context.Background(), "run-3")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].CreatedAt.Before(before))
}
