// Package model defines the domain model shared by the heliomorph pipeline
// components: hourly meteorological profiles, monthly climatologies and
// deltas, simulation log records and the consolidated result rows the
// statistical analyzer operates on.
package model

import (
	"fmt"
	"time"
)

// HoursPerYear is the fixed length of every emitted hourly profile. Profiles
// are always laid out on a non-leap calendar year; a February 29 slot is
// dropped on leap years.
const HoursPerYear = 8760

// Variable identifies a monthly climate-model driver.
type Variable string

const (
	// VarRsds is surface downwelling shortwave radiation (drives GHI).
	VarRsds Variable = "rsds"
	// VarTas is near-surface air temperature (drives TempC).
	VarTas Variable = "tas"
	// VarSfcWind is near-surface wind speed (drives WindSpeed).
	VarSfcWind Variable = "sfcWind"
	// VarHurs is near-surface relative humidity (drives RelHum).
	VarHurs Variable = "hurs"
)

// Variables lists the four driving variables in canonical order.
var Variables = []Variable{VarRsds, VarTas, VarSfcWind, VarHurs}

// Location is a target point on the earth. Model grids are resolved to the
// nearest available cell; Key rounds to a stable precision so cache keys do
// not churn on float formatting.
type Location struct {
	Lat float64
	Lon float64
}

// Key returns a stable string form of the location rounded to 4 decimals.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f_%.4f", l.Lat, l.Lon)
}

// YearWindow is a closed range of calendar years, e.g. the 1994-2014
// historical reference window.
type YearWindow struct {
	From int
	To   int
}

// Contains reports whether year falls inside the closed window.
func (w YearWindow) Contains(year int) bool {
	return year >= w.From && year <= w.To
}

// String returns the window as "from-to".
func (w YearWindow) String() string {
	return fmt.Sprintf("%d-%d", w.From, w.To)
}

// MonthlySeries holds one value per month of year; index 0 is January.
type MonthlySeries [12]float64

// Value returns the value for month (1-12).
func (s MonthlySeries) Value(month time.Month) float64 {
	return s[int(month)-1]
}

// Set assigns the value for month (1-12).
func (s *MonthlySeries) Set(month time.Month, v float64) {
	s[int(month)-1] = v
}

// MonthlyClimatology is the long-term monthly mean of one variable at one
// location, computed over a fixed historical window. Exactly 12 finite
// entries; computed once per (model, variable, location) and cached.
type MonthlyClimatology struct {
	Model    string        `json:"model"`
	Variable Variable      `json:"variable"`
	Location Location      `json:"location"`
	Window   YearWindow    `json:"window"`
	Values   MonthlySeries `json:"values"`
}

// DeltaKind tags how a monthly delta is applied to the base profile.
type DeltaKind string

const (
	// DeltaFactor is a multiplicative transform (future / climatology).
	DeltaFactor DeltaKind = "factor"
	// DeltaOffset is an additive transform (future - climatology).
	DeltaOffset DeltaKind = "offset"
)

// MonthlyDelta is the per-month transform parameter for one variable, derived
// from one future monthly value set and one climatology. Ephemeral; never
// persisted beyond the morph step.
type MonthlyDelta struct {
	Variable Variable
	Kind     DeltaKind
	Values   MonthlySeries
}

// HourlyRecord is one hour of the synthetic meteorological series.
type HourlyRecord struct {
	Time      time.Time
	GHI       float64
	DNI       float64
	DHI       float64
	TempC     float64
	WindSpeed float64
	RelHum    float64
}

// HourlyProfile is an ordered sequence of exactly HoursPerYear hourly records
// with a contiguous, strictly increasing hourly timestamp grid. It is
// constructed by the profile loader or the morph engine and treated as
// immutable once validated.
type HourlyProfile struct {
	Records []HourlyRecord
}

// Len returns the number of hourly records.
func (p *HourlyProfile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Records)
}

// Year returns the calendar year of the first record, or 0 for an empty
// profile.
func (p *HourlyProfile) Year() int {
	if p.Len() == 0 {
		return 0
	}
	return p.Records[0].Time.Year()
}

// LogStatus is the outcome recorded by one yield-simulation run.
type LogStatus string

const (
	// LogOK marks a successful simulation.
	LogOK LogStatus = "OK"
	// LogError marks a failed simulation.
	LogError LogStatus = "ERROR"
)

// SimulationLogRecord is the per-(scenario, year) outcome written by the
// simulation step and consumed by the consolidator. Serialized as one small
// JSON document per pair.
type SimulationLogRecord struct {
	Model            string     `json:"model"`
	Scenario         string     `json:"scenario"`
	Year             int        `json:"year"`
	Status           LogStatus  `json:"status"`
	AnnualEnergyMWh  float64    `json:"annual_energy_mwh"`
	CapacityFactor   float64    `json:"capacity_factor"`
	MonthlyEnergyKWh []float64 `json:"monthly_energy_kwh,omitempty"`
	ElapsedS         float64    `json:"elapsed_time_s"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// RecordStatus classifies one consolidated (model, scenario, year) row.
// The three-way split between OK, ERROR and MISSING_LOG drives re-run
// decisions by the caller and must be preserved exactly.
type RecordStatus string

const (
	// StatusOK means the morphed profile exists and the log records success.
	StatusOK RecordStatus = "OK"
	// StatusError means a log exists with a failure status.
	StatusError RecordStatus = "ERROR"
	// StatusMissingLog means the profile exists but no log was found,
	// commonly caused by an interrupted run.
	StatusMissingLog RecordStatus = "MISSING_LOG"
	// StatusNotRun means neither profile nor log exists for an expected pair.
	StatusNotRun RecordStatus = "NOT_RUN"
)

// ConsolidatedRecord joins profile existence, log status and yield metrics
// for one (model, scenario, year). Uniquely keyed by the triple. Nullable
// metric columns stay nil for non-OK rows.
type ConsolidatedRecord struct {
	Model          string       `gorm:"column:model;primaryKey" json:"model"`
	Scenario       string       `gorm:"column:scenario;primaryKey" json:"scenario"`
	Year           int          `gorm:"column:year;primaryKey" json:"year"`
	AnnualMWh      *float64     `gorm:"column:annual_mwh" json:"annual_mwh"`
	CapacityFactor *float64     `gorm:"column:capacity_factor" json:"capacity_factor"`
	ElapsedS       *float64     `gorm:"column:elapsed_s" json:"elapsed_s"`
	ProfilePath    string       `gorm:"column:profile_path" json:"profile_path"`
	LogPath        string       `gorm:"column:log_path" json:"log_path"`
	LogStatus      RecordStatus `gorm:"column:log_status" json:"log_status"`
	LogMessage     string       `gorm:"column:log_message" json:"log_message"`
	RunID          string       `gorm:"column:run_id" json:"run_id"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the results table for ConsolidatedRecord.
func (ConsolidatedRecord) TableName() string {
	return "consolidated_results"
}

// ValidationReport is the advisory outcome of validating a morphed profile.
// Only structural violations fail hard; everything here is a flag.
type ValidationReport struct {
	Rows int
	// ConsistencyMAE and ConsistencyMAPE compare GHI against DNI+DHI over
	// hours where GHI exceeds a small epsilon.
	ConsistencyMAE  float64
	ConsistencyMAPE float64
	// ConsistencyFlagged is set when the MAPE exceeds the configured threshold.
	ConsistencyFlagged bool
	// HoursChecked counts hours contributing to the consistency statistics.
	HoursChecked int
	// RangeFlags counts out-of-range hours per field; advisory only, since
	// real extreme weather can legitimately exceed soft bounds.
	RangeFlags map[string]int
}

// Flagged reports whether the report carries any advisory flag.
func (r *ValidationReport) Flagged() bool {
	if r.ConsistencyFlagged {
		return true
	}
	for _, n := range r.RangeFlags {
		if n > 0 {
			return true
		}
	}
	return false
}

// Pair identifies one unit of independent pipeline work.
type Pair struct {
	Scenario string
	Year     int
}

// String returns "scenario/year".
func (p Pair) String() string {
	return fmt.Sprintf("%s/%d", p.Scenario, p.Year)
}
