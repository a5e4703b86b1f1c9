package model

// Analysis projections derived from the consolidated result set for one
// (model, scenario). Recomputed on every analysis run, never persisted as
// authoritative state; exported as CSV and Parquet report artifacts, hence
// the parquet tags on the row structs.

// YearSummary joins the reference-period baseline against one year's value.
// Delta percentages are nil when the baseline is zero or undefined.
type YearSummary struct {
	Model          string   `parquet:"name=model,type=BYTE_ARRAY,convertedtype=UTF8" json:"model"`
	Scenario       string   `parquet:"name=scenario,type=BYTE_ARRAY,convertedtype=UTF8" json:"scenario"`
	Year           int32    `parquet:"name=year,type=INT32" json:"year"`
	AnnualMWh      float64  `parquet:"name=annual_mwh,type=DOUBLE" json:"annual_mwh"`
	CapacityFactor float64  `parquet:"name=capacity_factor,type=DOUBLE" json:"capacity_factor"`
	BaselineMWh    float64  `parquet:"name=baseline_mwh,type=DOUBLE" json:"baseline_mwh"`
	BaselineCF     float64  `parquet:"name=baseline_cf,type=DOUBLE" json:"baseline_cf"`
	DeltaMWhPct    *float64 `parquet:"name=delta_mwh_pct,type=DOUBLE,repetitiontype=OPTIONAL" json:"delta_mwh_pct"`
	DeltaCFPct     *float64 `parquet:"name=delta_cf_pct,type=DOUBLE,repetitiontype=OPTIONAL" json:"delta_cf_pct"`
	RollingMWh     *float64 `parquet:"name=rolling_mwh,type=DOUBLE,repetitiontype=OPTIONAL" json:"rolling_mwh"`
}

// DecadalSummary averages the per-year metrics inside one fixed decade bucket
// (e.g. "2030s") for one scenario.
type DecadalSummary struct {
	Scenario        string   `parquet:"name=scenario,type=BYTE_ARRAY,convertedtype=UTF8" json:"scenario"`
	Decade          string   `parquet:"name=decade,type=BYTE_ARRAY,convertedtype=UTF8" json:"decade"`
	MeanAnnualMWh   float64  `parquet:"name=mean_annual_mwh,type=DOUBLE" json:"mean_annual_mwh"`
	MeanCapacityFac float64  `parquet:"name=mean_capacity_factor,type=DOUBLE" json:"mean_capacity_factor"`
	MeanDeltaMWhPct *float64 `parquet:"name=mean_delta_mwh_pct,type=DOUBLE,repetitiontype=OPTIONAL" json:"mean_delta_mwh_pct"`
	MeanDeltaCFPct  *float64 `parquet:"name=mean_delta_cf_pct,type=DOUBLE,repetitiontype=OPTIONAL" json:"mean_delta_cf_pct"`
	YearCount       int32    `parquet:"name=year_count,type=INT32" json:"year_count"`
}

// TrendResult is the ordinary-least-squares trend of one metric against year,
// reported as percent per decade relative to the series mean, together with
// the Pettitt changepoint of the same annual series. Slope and R2 are nil
// when fewer than three annual values are available.
type TrendResult struct {
	Scenario          string   `parquet:"name=scenario,type=BYTE_ARRAY,convertedtype=UTF8" json:"scenario"`
	Metric            string   `parquet:"name=metric,type=BYTE_ARRAY,convertedtype=UTF8" json:"metric"`
	SlopePctPerDecade *float64 `parquet:"name=slope_pct_per_decade,type=DOUBLE,repetitiontype=OPTIONAL" json:"slope_pct_per_decade"`
	R2                *float64 `parquet:"name=r2,type=DOUBLE,repetitiontype=OPTIONAL" json:"r2"`
	ChangepointYear   *int32   `parquet:"name=changepoint_year,type=INT32,repetitiontype=OPTIONAL" json:"changepoint_year"`
	PettittU          *float64 `parquet:"name=pettitt_u,type=DOUBLE,repetitiontype=OPTIONAL" json:"pettitt_u"`
	PettittP          *float64 `parquet:"name=pettitt_p,type=DOUBLE,repetitiontype=OPTIONAL" json:"pettitt_p"`
	YearSpan          string   `parquet:"name=year_span,type=BYTE_ARRAY,convertedtype=UTF8" json:"year_span"`
	N                 int32    `parquet:"name=n,type=INT32" json:"n"`
}

// Coverage reports year coverage and non-OK counts per scenario. Gaps in the
// annual series are listed explicitly rather than interpolated away.
type Coverage struct {
	Scenario        string  `parquet:"name=scenario,type=BYTE_ARRAY,convertedtype=UTF8" json:"scenario"`
	MinYear         int32   `parquet:"name=min_year,type=INT32" json:"min_year"`
	MaxYear         int32   `parquet:"name=max_year,type=INT32" json:"max_year"`
	YearCount       int32   `parquet:"name=year_count,type=INT32" json:"year_count"`
	// MissingYears is a comma-separated list of years absent from the series.
	MissingYears    string  `parquet:"name=missing_years,type=BYTE_ARRAY,convertedtype=UTF8" json:"missing_years"`
	OKCount         int32   `parquet:"name=ok_count,type=INT32" json:"ok_count"`
	ErrorCount      int32   `parquet:"name=error_count,type=INT32" json:"error_count"`
	MissingLogCount int32   `parquet:"name=missing_log_count,type=INT32" json:"missing_log_count"`
	NotRunCount     int32   `parquet:"name=not_run_count,type=INT32" json:"not_run_count"`
}
