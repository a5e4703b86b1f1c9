package analyze

import (
	"sort"
	"strconv"
	"strings"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "analyze"

// Report bundles every analysis projection for one run.
type Report struct {
	Summaries []model.YearSummary
	Decadal   []model.DecadalSummary
	Trends    []model.TrendResult
	Coverage  []model.Coverage
}

// Analyzer derives the statistical projections from the consolidated table.
// Non-OK rows are excluded from statistics but counted in coverage; gaps in
// year coverage are reported, never interpolated.
type Analyzer struct {
	cfg *config.Config
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg *config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// scenarioSeries is the OK annual series of one scenario, sorted by year.
type scenarioSeries struct {
	scenario string
	years    []int
	mwh      []float64
	cf       []float64
}

// Analyze computes all projections over the consolidated records.
func (a *Analyzer) Analyze(records []model.ConsolidatedRecord) (*Report, error) {
	if len(records) == 0 {
		return nil, exception.Newf(moduleName, exception.KindStructural, "no consolidated records to analyze")
	}

	series := buildSeries(records)
	baselineMWh, baselineCF := a.baseline(series)

	report := &Report{}
	for _, s := range series {
		report.Summaries = append(report.Summaries, a.yearSummaries(s, baselineMWh, baselineCF)...)
		report.Decadal = append(report.Decadal, a.decadal(s, baselineMWh, baselineCF)...)
		report.Trends = append(report.Trends, a.trends(s)...)
	}
	report.Coverage = coverage(records)

	logger.Infof("Analyzed %d consolidated rows into %d year summaries, %d decadal rows, %d trends.",
		len(records), len(report.Summaries), len(report.Decadal), len(report.Trends))
	return report, nil
}

// buildSeries extracts the OK rows per scenario ordered by year.
func buildSeries(records []model.ConsolidatedRecord) []scenarioSeries {
	byScenario := make(map[string][]model.ConsolidatedRecord)
	var order []string
	for _, r := range records {
		if r.LogStatus != model.StatusOK || r.AnnualMWh == nil || r.CapacityFactor == nil {
			continue
		}
		if _, ok := byScenario[r.Scenario]; !ok {
			order = append(order, r.Scenario)
		}
		byScenario[r.Scenario] = append(byScenario[r.Scenario], r)
	}
	sort.Strings(order)

	var out []scenarioSeries
	for _, scenario := range order {
		rows := byScenario[scenario]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })

		s := scenarioSeries{scenario: scenario}
		for _, r := range rows {
			s.years = append(s.years, r.Year)
			s.mwh = append(s.mwh, *r.AnnualMWh)
			s.cf = append(s.cf, *r.CapacityFactor)
		}
		out = append(out, s)
	}
	return out
}

// baseline computes the reference-period mean of annual energy and capacity
// factor. The historical scenario's baseline-window years are preferred; when
// absent, the window mean over all scenarios is used instead.
func (a *Analyzer) baseline(series []scenarioSeries) (float64, float64) {
	window := model.YearWindow{
		From: a.cfg.Heliomorph.Run.Baseline.From,
		To:   a.cfg.Heliomorph.Run.Baseline.To,
	}

	mean := func(filter func(scenarioSeries) bool) (float64, float64, int) {
		var sumMWh, sumCF float64
		n := 0
		for _, s := range series {
			if !filter(s) {
				continue
			}
			for i, y := range s.years {
				if window.Contains(y) {
					sumMWh += s.mwh[i]
					sumCF += s.cf[i]
					n++
				}
			}
		}
		if n == 0 {
			return 0, 0, 0
		}
		return sumMWh / float64(n), sumCF / float64(n), n
	}

	mwh, cf, n := mean(func(s scenarioSeries) bool { return s.scenario == "historical" })
	if n == 0 {
		logger.Warnf("No historical baseline years %s available, using all scenarios for the baseline.", window)
		mwh, cf, n = mean(func(scenarioSeries) bool { return true })
	}
	if n == 0 {
		logger.Warnf("No OK rows inside baseline window %s; deltas will be undefined.", window)
	}
	return mwh, cf
}

// yearSummaries joins each year against the baseline, with safe percentage
// deltas and the visualization rolling mean.
func (a *Analyzer) yearSummaries(s scenarioSeries, baselineMWh, baselineCF float64) []model.YearSummary {
	rolling := RollingMean(s.mwh, a.cfg.Heliomorph.Analysis.RollingWindowYears)

	out := make([]model.YearSummary, 0, len(s.years))
	for i, y := range s.years {
		out = append(out, model.YearSummary{
			Model:          a.cfg.Heliomorph.Run.Model,
			Scenario:       s.scenario,
			Year:           int32(y),
			AnnualMWh:      s.mwh[i],
			CapacityFactor: s.cf[i],
			BaselineMWh:    baselineMWh,
			BaselineCF:     baselineCF,
			DeltaMWhPct:    SafePct(s.mwh[i], baselineMWh),
			DeltaCFPct:     SafePct(s.cf[i], baselineCF),
			RollingMWh:     rolling[i],
		})
	}
	return out
}

// decadal averages the annual metrics inside fixed decade buckets.
func (a *Analyzer) decadal(s scenarioSeries, baselineMWh, baselineCF float64) []model.DecadalSummary {
	type bucket struct {
		sumMWh, sumCF float64
		n             int
	}
	buckets := make(map[string]*bucket)
	var order []string
	for i, y := range s.years {
		d := DecadeOf(y)
		b, ok := buckets[d]
		if !ok {
			b = &bucket{}
			buckets[d] = b
			order = append(order, d)
		}
		b.sumMWh += s.mwh[i]
		b.sumCF += s.cf[i]
		b.n++
	}
	sort.Strings(order)

	out := make([]model.DecadalSummary, 0, len(order))
	for _, d := range order {
		b := buckets[d]
		meanMWh := b.sumMWh / float64(b.n)
		meanCF := b.sumCF / float64(b.n)
		out = append(out, model.DecadalSummary{
			Scenario:        s.scenario,
			Decade:          d,
			MeanAnnualMWh:   meanMWh,
			MeanCapacityFac: meanCF,
			MeanDeltaMWhPct: SafePct(meanMWh, baselineMWh),
			MeanDeltaCFPct:  SafePct(meanCF, baselineCF),
			YearCount:       int32(b.n),
		})
	}
	return out
}

// trends computes the OLS trend and Pettitt changepoint per metric. The raw
// annual series feeds both; smoothing never does.
func (a *Analyzer) trends(s scenarioSeries) []model.TrendResult {
	span := ""
	if len(s.years) > 0 {
		span = model.YearWindow{From: s.years[0], To: s.years[len(s.years)-1]}.String()
	}

	build := func(metric string, values []float64) model.TrendResult {
		slope, r2 := OLSTrend(s.years, values)
		tr := model.TrendResult{
			Scenario:          s.scenario,
			Metric:            metric,
			SlopePctPerDecade: slope,
			R2:                r2,
			YearSpan:          span,
			N:                 int32(len(values)),
		}
		if idx, u, p, ok := Pettitt(values); ok {
			year := int32(s.years[idx])
			tr.ChangepointYear = &year
			tr.PettittU = &u
			tr.PettittP = &p
		}
		return tr
	}

	return []model.TrendResult{
		build("annual_mwh", s.mwh),
		build("capacity_factor", s.cf),
	}
}

// coverage reports year span, gaps and per-status counts for every scenario,
// including scenarios with no OK rows at all.
func coverage(records []model.ConsolidatedRecord) []model.Coverage {
	type agg struct {
		okYears    map[int]bool
		ok, errCnt int
		missingLog int
		notRun     int
	}
	byScenario := make(map[string]*agg)
	var order []string
	for _, r := range records {
		a, ok := byScenario[r.Scenario]
		if !ok {
			a = &agg{okYears: make(map[int]bool)}
			byScenario[r.Scenario] = a
			order = append(order, r.Scenario)
		}
		switch r.LogStatus {
		case model.StatusOK:
			a.ok++
			a.okYears[r.Year] = true
		case model.StatusError:
			a.errCnt++
		case model.StatusMissingLog:
			a.missingLog++
		case model.StatusNotRun:
			a.notRun++
		}
	}
	sort.Strings(order)

	out := make([]model.Coverage, 0, len(order))
	for _, scenario := range order {
		a := byScenario[scenario]
		cov := model.Coverage{
			Scenario:        scenario,
			YearCount:       int32(len(a.okYears)),
			OKCount:         int32(a.ok),
			ErrorCount:      int32(a.errCnt),
			MissingLogCount: int32(a.missingLog),
			NotRunCount:     int32(a.notRun),
		}
		if len(a.okYears) > 0 {
			years := make([]int, 0, len(a.okYears))
			for y := range a.okYears {
				years = append(years, y)
			}
			sort.Ints(years)
			cov.MinYear = int32(years[0])
			cov.MaxYear = int32(years[len(years)-1])
			cov.MissingYears = missingYearList(years)
		}
		out = append(out, cov)
	}
	return out
}

// missingYearList renders the gaps of a sorted year list as a comma-separated
// string.
func missingYearList(years []int) string {
	have := make(map[int]bool, len(years))
	for _, y := range years {
		have[y] = true
	}
	var missing []string
	for y := years[0]; y <= years[len(years)-1]; y++ {
		if !have[y] {
			missing = append(missing, strconv.Itoa(y))
		}
	}
	return strings.Join(missing, ",")
}
