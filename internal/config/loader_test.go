package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/pkg/support/configbinder"
	"github.com/camposclima/heliomorph/pkg/support/exception"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "ACCESS-CM2", cfg.Heliomorph.Run.Model)
	assert.Equal(t, []string{"ssp245", "ssp585"}, cfg.Heliomorph.Run.Scenarios)
	assert.Equal(t, 2015, cfg.Heliomorph.Run.HistoricalCutoffYear)
	assert.Equal(t, 900.0, cfg.Heliomorph.Morph.TargetPeakWm2)
	require.Contains(t, cfg.Heliomorph.Databases, config.ResultsDBRef)
	assert.Equal(t, "sqlite", cfg.Heliomorph.Databases[config.ResultsDBRef].Type)
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	embedded := []byte(`
heliomorph:
  run:
    model: "MIROC6"
    workers: 2
  morph:
    use_yearly_wind: false
`)
	cfg, err := config.LoadConfig("", embedded)
	require.NoError(t, err)

	assert.Equal(t, "MIROC6", cfg.Heliomorph.Run.Model)
	assert.Equal(t, 2, cfg.Heliomorph.Run.Workers)
	assert.False(t, cfg.Heliomorph.Morph.UseYearlyWind)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2019, cfg.Heliomorph.Run.BaseYear)
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	embedded := []byte("heliomorph:\n  run:\n    model: \"MIROC6\"\n")
	t.Setenv("HELIOMORPH_RUN_MODEL", "CanESM5")
	t.Setenv("HELIOMORPH_RUN_WORKERS", "8")
	t.Setenv("HELIOMORPH_RUN_SCENARIOS", "ssp126, ssp370")

	cfg, err := config.LoadConfig("", embedded)
	require.NoError(t, err)

	assert.Equal(t, "CanESM5", cfg.Heliomorph.Run.Model)
	assert.Equal(t, 8, cfg.Heliomorph.Run.Workers)
	assert.Equal(t, []string{"ssp126", "ssp370"}, cfg.Heliomorph.Run.Scenarios)
}

func TestLoadConfigEnvPopulatesConnectionMaps(t *testing.T) {
	t.Setenv("HELIOMORPH_DATABASE_RESULTS_TYPE", "postgres")
	t.Setenv("HELIOMORPH_DATABASE_RESULTS_HOST", "db.internal")
	t.Setenv("HELIOMORPH_STORAGE_ARTIFACTS_TYPE", "gcs")
	t.Setenv("HELIOMORPH_STORAGE_ARTIFACTS_BUCKET", "heliomorph-artifacts")

	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	db := cfg.Heliomorph.Databases[config.ResultsDBRef]
	assert.Equal(t, "postgres", db.Type)
	assert.Equal(t, "db.internal", db.Host)

	st := cfg.Heliomorph.Storages[config.ArtifactStorageRef]
	assert.Equal(t, "gcs", st.Type)
	assert.Equal(t, "heliomorph-artifacts", st.Bucket)
}

func TestLoadConfigInvalidEnvValueFails(t *testing.T) {
	t.Setenv("HELIOMORPH_RUN_WORKERS", "many")

	_, err := config.LoadConfig("", nil)
	require.Error(t, err)
	assert.True(t, exception.IsConfig(err))
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty model", func(c *config.Config) { c.Heliomorph.Run.Model = "" }},
		{"no scenarios", func(c *config.Config) { c.Heliomorph.Run.Scenarios = nil }},
		{"inverted years", func(c *config.Config) { c.Heliomorph.Run.Years = config.YearRange{From: 2060, To: 2050} }},
		{"inverted baseline", func(c *config.Config) { c.Heliomorph.Run.Baseline = config.YearRange{From: 2014, To: 1994} }},
		{"zero workers", func(c *config.Config) { c.Heliomorph.Run.Workers = 0 }},
		{"latitude out of range", func(c *config.Config) { c.Heliomorph.Site.Latitude = 123 }},
		{"zero target peak", func(c *config.Config) { c.Heliomorph.Morph.TargetPeakWm2 = 0 }},
		{"zero mape threshold", func(c *config.Config) { c.Heliomorph.Validation.MAPEThresholdPct = 0 }},
		{"missing results db", func(c *config.Config) { delete(c.Heliomorph.Databases, config.ResultsDBRef) }},
		{"missing artifact storage", func(c *config.Config) { delete(c.Heliomorph.Storages, config.ArtifactStorageRef) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewConfig()
			tc.mutate(cfg)
			err := config.Validate(cfg)
			require.Error(t, err)
			assert.True(t, exception.IsConfig(err))
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, config.Validate(config.NewConfig()))
}

func TestRunOverridesBindWeaklyTypedValues(t *testing.T) {
	cfg := config.NewConfig()

	err := configbinder.BindProperties(map[string]interface{}{
		"model":     "MIROC6",
		"workers":   "8",
		"scenarios": "ssp126",
	}, &cfg.Heliomorph.Run)
	require.NoError(t, err)

	assert.Equal(t, "MIROC6", cfg.Heliomorph.Run.Model)
	assert.Equal(t, 8, cfg.Heliomorph.Run.Workers)
	assert.Equal(t, []string{"ssp126"}, cfg.Heliomorph.Run.Scenarios)
	// Keys not mentioned stay at their configured values.
	assert.Equal(t, 2019, cfg.Heliomorph.Run.BaseYear)
}
