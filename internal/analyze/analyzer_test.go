package analyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camposclima/heliomorph/internal/analyze"
	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
)

func okRecord(scenario string, year int, mwh, cf float64) model.ConsolidatedRecord {
	return model.ConsolidatedRecord{
		Model:          "ACCESS-CM2",
		Scenario:       scenario,
		Year:           year,
		AnnualMWh:      &mwh,
		CapacityFactor: &cf,
		LogStatus:      model.StatusOK,
	}
}

func analyzerConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Heliomorph.Run.Baseline.From = 2000
	cfg.Heliomorph.Run.Baseline.To = 2002
	return cfg
}

func TestAnalyzeUsesHistoricalBaseline(t *testing.T) {
	records := []model.ConsolidatedRecord{
		okRecord("historical", 2000, 100, 0.20),
		okRecord("historical", 2001, 110, 0.22),
		okRecord("historical", 2002, 90, 0.18),
		okRecord("ssp245", 2050, 120, 0.24),
	}

	report, err := analyze.NewAnalyzer(analyzerConfig()).Analyze(records)
	require.NoError(t, err)

	// Baseline is the historical 2000-2002 mean: 100 MWh, CF 0.20.
	var future *model.YearSummary
	for i := range report.Summaries {
		if report.Summaries[i].Scenario == "ssp245" {
			future = &report.Summaries[i]
		}
	}
	require.NotNil(t, future)
	assert.InDelta(t, 100.0, future.BaselineMWh, 1e-9)
	require.NotNil(t, future.DeltaMWhPct)
	assert.InDelta(t, 20.0, *future.DeltaMWhPct, 1e-9)
	require.NotNil(t, future.DeltaCFPct)
	assert.InDelta(t, 20.0, *future.DeltaCFPct, 1e-6)
}

func TestAnalyzeFallsBackToAllScenariosForBaseline(t *testing.T) {
	records := []model.ConsolidatedRecord{
		okRecord("ssp245", 2000, 100, 0.20),
		okRecord("ssp245", 2001, 100, 0.20),
		okRecord("ssp245", 2050, 150, 0.30),
	}

	report, err := analyze.NewAnalyzer(analyzerConfig()).Analyze(records)
	require.NoError(t, err)

	last := report.Summaries[len(report.Summaries)-1]
	assert.Equal(t, int32(2050), last.Year)
	require.NotNil(t, last.DeltaMWhPct)
	assert.InDelta(t, 50.0, *last.DeltaMWhPct, 1e-9)
}

func TestAnalyzeTrendOnLinearSeries(t *testing.T) {
	var records []model.ConsolidatedRecord
	for i := 0; i < 10; i++ {
		records = append(records, okRecord("ssp585", 2040+i, 100+float64(i), 0.2))
	}

	report, err := analyze.NewAnalyzer(analyzerConfig()).Analyze(records)
	require.NoError(t, err)
	require.Len(t, report.Trends, 2)

	var mwhTrend *model.TrendResult
	for i := range report.Trends {
		if report.Trends[i].Metric == "annual_mwh" {
			mwhTrend = &report.Trends[i]
		}
	}
	require.NotNil(t, mwhTrend)
	require.NotNil(t, mwhTrend.SlopePctPerDecade)
	// Slope 1 MWh/year on mean 104.5: 1*10/104.5*100 = 9.569 %/decade.
	assert.InDelta(t, 9.569, *mwhTrend.SlopePctPerDecade, 0.01)
	require.NotNil(t, mwhTrend.R2)
	assert.InDelta(t, 1.0, *mwhTrend.R2, 1e-9)
	assert.Equal(t, "2040-2049", mwhTrend.YearSpan)
}

func TestAnalyzeExcludesNonOKRowsFromStatistics(t *testing.T) {
	records := []model.ConsolidatedRecord{
		okRecord("ssp245", 2000, 100, 0.2),
		okRecord("ssp245", 2001, 100, 0.2),
		okRecord("ssp245", 2002, 100, 0.2),
		{Scenario: "ssp245", Year: 2003, LogStatus: model.StatusError},
		{Scenario: "ssp245", Year: 2004, LogStatus: model.StatusNotRun},
	}

	report, err := analyze.NewAnalyzer(analyzerConfig()).Analyze(records)
	require.NoError(t, err)

	assert.Len(t, report.Summaries, 3)
	require.Len(t, report.Coverage, 1)
	cov := report.Coverage[0]
	assert.Equal(t, int32(3), cov.OKCount)
	assert.Equal(t, int32(1), cov.ErrorCount)
	assert.Equal(t, int32(1), cov.NotRunCount)
}

func TestAnalyzeCoverageReportsGaps(t *testing.T) {
	records := []model.ConsolidatedRecord{
		okRecord("ssp245", 2000, 100, 0.2),
		okRecord("ssp245", 2003, 100, 0.2),
		okRecord("ssp245", 2005, 100, 0.2),
	}

	report, err := analyze.NewAnalyzer(analyzerConfig()).Analyze(records)
	require.NoError(t, err)

	require.Len(t, report.Coverage, 1)
	cov := report.Coverage[0]
	assert.Equal(t, int32(2000), cov.MinYear)
	assert.Equal(t, int32(2005), cov.MaxYear)
	assert.Equal(t, "2001,2002,2004", cov.MissingYears)
}

func TestAnalyzeEmptyInputFails(t *testing.T) {
	_, err := analyze.NewAnalyzer(analyzerConfig()).Analyze(nil)
	assert.Error(t, err)
}

func TestAnalyzeDecadalBuckets(t *testing.T) {
	records := []model.ConsolidatedRecord{
		okRecord("ssp245", 2041, 100, 0.2),
		okRecord("ssp245", 2049, 120, 0.2),
		okRecord("ssp245", 2051, 200, 0.2),
	}

	report, err := analyze.NewAnalyzer(analyzerConfig()).Analyze(records)
	require.NoError(t, err)
	require.Len(t, report.Decadal, 2)

	assert.Equal(t, "2040s", report.Decadal[0].Decade)
	assert.InDelta(t, 110.0, report.Decadal[0].MeanAnnualMWh, 1e-9)
	assert.Equal(t, int32(2), report.Decadal[0].YearCount)
	assert.Equal(t, "2050s", report.Decadal[1].Decade)
	assert.InDelta(t, 200.0, report.Decadal[1].MeanAnnualMWh, 1e-9)
}
