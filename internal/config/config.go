// Package config provides structures and utilities for managing the
// heliomorph application configuration. Tunables that are judgment calls
// (physical-range bounds, MAPE threshold, irradiance target peak) live here
// rather than as hard-coded constants.
package config

// EmbeddedConfig holds the content of the configuration file, typically
// passed from main.go via go:embed.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g. "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g. "UTC").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// SiteConfig describes the target location of the PV system.
type SiteConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	ElevationM float64 `yaml:"elevation_m"`
	// TimezoneOffsetH is the fixed UTC offset of the hourly grid, in hours.
	TimezoneOffsetH int `yaml:"timezone_offset_h"`
}

// YearRange is a closed calendar-year range.
type YearRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// RunConfig selects the climate model, scenarios and year window of a batch.
type RunConfig struct {
	// Model is the climate-model identifier (e.g. "ACCESS-CM2").
	Model string `yaml:"model"`
	// Scenarios lists the future scenarios to process (e.g. ssp245, ssp585).
	Scenarios []string `yaml:"scenarios"`
	// Years is the full target window, historical years included.
	Years YearRange `yaml:"years"`
	// Baseline is the historical reference window for climatology and the
	// analysis baseline.
	Baseline YearRange `yaml:"baseline"`
	// HistoricalCutoffYear routes target years below it to the "historical"
	// scenario; such years are processed once, under the first scenario only.
	HistoricalCutoffYear int `yaml:"historical_cutoff_year"`
	// Workers is the size of the per-pair worker pool.
	Workers int `yaml:"workers"`
	// BaseYear is the calendar year of the observed base profile.
	BaseYear int `yaml:"base_year"`
}

// PathsConfig locates inputs and artifact directories.
type PathsConfig struct {
	// BaseProfileCSV is the observed hourly base-year profile.
	BaseProfileCSV string `yaml:"base_profile_csv"`
	// GridDir is the root of the flat monthly/daily climate-grid tables.
	GridDir string `yaml:"grid_dir"`
	// OutputDir receives the morphed hourly CSVs, one per (scenario, year).
	OutputDir string `yaml:"output_dir"`
	// LogDir receives the per-pair simulation log JSON documents.
	LogDir string `yaml:"log_dir"`
	// CacheDir receives the climatology cache entries.
	CacheDir string `yaml:"cache_dir"`
	// AnalysisDir receives the analysis output tables.
	AnalysisDir string `yaml:"analysis_dir"`
	// ConsolidatedCSV is the consolidated result table.
	ConsolidatedCSV string `yaml:"consolidated_csv"`
}

// MorphConfig tunes the delta-change morph engine and the loader auto-scale.
type MorphConfig struct {
	// IrradianceScale overrides the auto-detected irradiance scale when > 0.
	IrradianceScale float64 `yaml:"irradiance_scale"`
	// TargetPeakWm2 is the physically expected clear-sky GHI peak used by the
	// auto-scale detection.
	TargetPeakWm2 float64 `yaml:"target_peak_wm2"`
	// UseYearlyWind applies the target year's wind value instead of the
	// climatology-only adjustment when building the wind factor.
	UseYearlyWind bool `yaml:"use_yearly_wind"`
}

// ValidationConfig carries the advisory thresholds of the profile validator.
// These are empirical constants, not algorithmic requirements.
type ValidationConfig struct {
	// ConsistencyEpsilonWm2 excludes near-dark hours from the GHI vs DNI+DHI
	// consistency statistics.
	ConsistencyEpsilonWm2 float64 `yaml:"consistency_epsilon_wm2"`
	// MAPEThresholdPct flags the profile when the consistency MAPE exceeds it.
	MAPEThresholdPct float64 `yaml:"mape_threshold_pct"`
	TempMinC         float64 `yaml:"temp_min_c"`
	TempMaxC         float64 `yaml:"temp_max_c"`
	WindMaxMs        float64 `yaml:"wind_max_ms"`
}

// SimulationConfig describes the PV system handed to the yield simulator.
type SimulationConfig struct {
	SystemCapacityKW float64 `yaml:"system_capacity_kw"`
	TiltDeg          float64 `yaml:"tilt_deg"`
	AzimuthDeg       float64 `yaml:"azimuth_deg"`
	DCACRatio        float64 `yaml:"dc_ac_ratio"`
	LossesPct        float64 `yaml:"losses_pct"`
	InverterEffPct   float64 `yaml:"inverter_eff_pct"`
	GroundCoverRatio float64 `yaml:"gcr"`
}

// AnalysisConfig tunes the statistical analyzer.
type AnalysisConfig struct {
	// RollingWindowYears is the fixed window of the visualization rolling
	// mean. The trend computation always uses raw annual values.
	RollingWindowYears int `yaml:"rolling_window_years"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig describes one named database connection.
type DatabaseConfig struct {
	// Type selects the backend: "sqlite", "mysql" or "postgres".
	Type     string     `yaml:"type"`
	Host     string     `yaml:"host"`
	Port     int        `yaml:"port"`
	Database string     `yaml:"database"`
	User     string     `yaml:"user"`
	Password string     `yaml:"password"`
	SSLMode  string     `yaml:"sslmode"`
	Pool     PoolConfig `yaml:"pool"`
}

// StorageConfig describes one named storage connection for artifacts and the
// climatology cache.
type StorageConfig struct {
	// Type selects the backend: "local" or "gcs".
	Type string `yaml:"type"`
	// BaseDir is the root directory for the local backend.
	BaseDir string `yaml:"base_dir"`
	// Bucket is the bucket name for the gcs backend.
	Bucket string `yaml:"bucket"`
	// CredentialsFile optionally points at a service-account key for gcs.
	CredentialsFile string `yaml:"credentials_file"`
	// AnonymousAuth skips authentication for public buckets.
	AnonymousAuth bool `yaml:"anonymous_auth"`
}

// TelemetryConfig configures the OpenTelemetry exporters.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`
	// Protocol selects the exporter transport: "grpc" or "http".
	Protocol string `yaml:"protocol"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`
	// ServiceName labels emitted spans and metrics.
	ServiceName string `yaml:"service_name"`
}

// MetricsConfig configures the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Listen is the address of the /metrics endpoint, empty to disable the
	// HTTP exposition.
	Listen string `yaml:"listen"`
}

// HeliomorphConfig holds all configuration under the "heliomorph" top-level key.
type HeliomorphConfig struct {
	System     SystemConfig             `yaml:"system"`
	Site       SiteConfig               `yaml:"site"`
	Run        RunConfig                `yaml:"run"`
	Paths      PathsConfig              `yaml:"paths"`
	Morph      MorphConfig              `yaml:"morph"`
	Validation ValidationConfig         `yaml:"validation"`
	Simulation SimulationConfig         `yaml:"simulation"`
	Analysis   AnalysisConfig           `yaml:"analysis"`
	Databases  map[string]DatabaseConfig `yaml:"database"`
	Storages   map[string]StorageConfig  `yaml:"storage"`
	Telemetry  TelemetryConfig          `yaml:"telemetry"`
	Metrics    MetricsConfig            `yaml:"metrics"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Heliomorph HeliomorphConfig `yaml:"heliomorph"`
	// EmbeddedConfig holds configuration loaded from an embedded source.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// ResultsDBRef is the name of the database connection holding consolidated
// results.
const ResultsDBRef = "results"

// ArtifactStorageRef is the name of the storage connection receiving profile,
// log and cache artifacts.
const ArtifactStorageRef = "artifacts"

// NewConfig returns a new Config populated with defaults. YAML and
// environment overrides are merged on top by the loader.
func NewConfig() *Config {
	return &Config{
		Heliomorph: HeliomorphConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Site: SiteConfig{
				Latitude:        -21.7,
				Longitude:       -41.3,
				ElevationM:      20,
				TimezoneOffsetH: -3,
			},
			Run: RunConfig{
				Model:                "ACCESS-CM2",
				Scenarios:            []string{"ssp245", "ssp585"},
				Years:                YearRange{From: 1994, To: 2054},
				Baseline:             YearRange{From: 1994, To: 2014},
				HistoricalCutoffYear: 2015,
				Workers:              4,
				BaseYear:             2019,
			},
			Paths: PathsConfig{
				BaseProfileCSV:  "data/base_profile.csv",
				GridDir:         "data/grid",
				OutputDir:       "out/profiles",
				LogDir:          "out/logs",
				CacheDir:        "out/cache",
				AnalysisDir:     "out/analysis",
				ConsolidatedCSV: "out/consolidated.csv",
			},
			Morph: MorphConfig{
				IrradianceScale: 0, // 0 = auto-detect
				TargetPeakWm2:   900,
				UseYearlyWind:   true,
			},
			Validation: ValidationConfig{
				ConsistencyEpsilonWm2: 1.0,
				MAPEThresholdPct:      15,
				TempMinC:              -20,
				TempMaxC:              55,
				WindMaxMs:             60,
			},
			Simulation: SimulationConfig{
				SystemCapacityKW: 1000,
				TiltDeg:          21.5,
				AzimuthDeg:       0,
				DCACRatio:        1.2,
				LossesPct:        14,
				InverterEffPct:   96,
				GroundCoverRatio: 0.40,
			},
			Analysis: AnalysisConfig{
				RollingWindowYears: 5,
			},
			Databases: map[string]DatabaseConfig{
				ResultsDBRef: {
					Type:     "sqlite",
					Database: "out/heliomorph.db",
					Pool:     PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
				},
			},
			Storages: map[string]StorageConfig{
				ArtifactStorageRef: {
					Type:    "local",
					BaseDir: "out",
				},
			},
			Telemetry: TelemetryConfig{
				Enabled:     false,
				Endpoint:    "localhost:4317",
				Protocol:    "grpc",
				Insecure:    true,
				ServiceName: "heliomorph",
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Listen:  "",
			},
		},
	}
}
