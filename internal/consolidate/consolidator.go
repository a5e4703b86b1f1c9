// Package consolidate joins morphed-profile availability and simulation log
// outcomes into one status table, one row per expected (model, scenario, year).
package consolidate

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/camposclima/heliomorph/internal/config"
	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/profile"
	"github.com/camposclima/heliomorph/internal/simulate"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

const moduleName = "consolidate"

// consolidatedObject is the artifact name of the consolidated CSV table.
const consolidatedObject = "consolidated.csv"

// csvHeader is the column order of the consolidated table artifact.
var csvHeader = []string{
	"model", "scenario", "year", "annual_mwh", "capacity_factor",
	"elapsed_s", "profile_path", "log_status", "log_message",
}

// Consolidator classifies every expected pair from profile existence and log
// status. The three-way OK / ERROR / MISSING_LOG split drives the caller's
// re-run decisions and is preserved exactly; pairs with neither artifact get
// an explicit NOT_RUN row.
type Consolidator struct {
	cfg      *config.Config
	profiles *profile.Store
	logs     *simulate.LogStore
	conn     storage.StorageConnection
}

// NewConsolidator creates a Consolidator.
func NewConsolidator(cfg *config.Config, profiles *profile.Store, logs *simulate.LogStore, conn storage.StorageConnection) *Consolidator {
	return &Consolidator{cfg: cfg, profiles: profiles, logs: logs, conn: conn}
}

// ExpectedPairs enumerates every (scenario, year) the run configuration
// expects. Years before the historical cutoff route to the "historical"
// scenario and appear once, under the first configured scenario only.
func ExpectedPairs(run *config.RunConfig) []model.Pair {
	var pairs []model.Pair
	seen := make(map[model.Pair]bool)
	for i, scenario := range run.Scenarios {
		for year := run.Years.From; year <= run.Years.To; year++ {
			s := scenario
			if year < run.HistoricalCutoffYear {
				if i > 0 {
					continue
				}
				s = "historical"
			}
			p := model.Pair{Scenario: s, Year: year}
			if seen[p] {
				continue
			}
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// Consolidate builds one ConsolidatedRecord per expected pair, writes the
// consolidated CSV artifact and returns the rows ordered by (scenario, year).
func (c *Consolidator) Consolidate(ctx context.Context, runID string) ([]model.ConsolidatedRecord, error) {
	run := &c.cfg.Heliomorph.Run
	pairs := ExpectedPairs(run)

	records := make([]model.ConsolidatedRecord, 0, len(pairs))
	for _, pair := range pairs {
		rec, err := c.classify(ctx, run.Model, pair, runID)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Scenario != records[j].Scenario {
			return records[i].Scenario < records[j].Scenario
		}
		return records[i].Year < records[j].Year
	})

	if err := c.writeCSV(ctx, records); err != nil {
		return nil, err
	}

	counts := make(map[model.RecordStatus]int)
	for _, r := range records {
		counts[r.LogStatus]++
	}
	logger.Infof("Consolidated %d pairs: OK=%d ERROR=%d MISSING_LOG=%d NOT_RUN=%d.",
		len(records), counts[model.StatusOK], counts[model.StatusError],
		counts[model.StatusMissingLog], counts[model.StatusNotRun])

	return records, nil
}

// classify resolves the status of one pair from the artifacts on storage.
func (c *Consolidator) classify(ctx context.Context, climateModel string, pair model.Pair, runID string) (*model.ConsolidatedRecord, error) {
	profileExists, err := c.profiles.Exists(ctx, climateModel, pair.Scenario, pair.Year)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindStructural,
			fmt.Sprintf("failed to probe profile for %s", pair), err)
	}

	log, err := c.logs.Read(ctx, pair.Scenario, pair.Year)
	if err != nil {
		return nil, err
	}

	rec := &model.ConsolidatedRecord{
		Model:     climateModel,
		Scenario:  pair.Scenario,
		Year:      pair.Year,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}
	if profileExists {
		rec.ProfilePath = c.profiles.Path(climateModel, pair.Scenario, pair.Year)
	}

	switch {
	case log != nil && log.Status == model.LogOK && profileExists:
		rec.LogStatus = model.StatusOK
		rec.LogPath = c.logs.Path(pair.Scenario, pair.Year)
		annual, cf, elapsed := log.AnnualEnergyMWh, log.CapacityFactor, log.ElapsedS
		rec.AnnualMWh = &annual
		rec.CapacityFactor = &cf
		rec.ElapsedS = &elapsed
	case log != nil && log.Status == model.LogOK && !profileExists:
		// A successful log without its profile is not trustworthy.
		rec.LogStatus = model.StatusError
		rec.LogPath = c.logs.Path(pair.Scenario, pair.Year)
		rec.LogMessage = "log reports success but profile artifact is missing"
	case log != nil:
		rec.LogStatus = model.StatusError
		rec.LogPath = c.logs.Path(pair.Scenario, pair.Year)
		rec.LogMessage = log.ErrorMessage
	case profileExists:
		rec.LogStatus = model.StatusMissingLog
	default:
		rec.LogStatus = model.StatusNotRun
	}

	return rec, nil
}

// writeCSV serializes the consolidated table and uploads it atomically.
func (c *Consolidator) writeCSV(ctx context.Context, records []model.ConsolidatedRecord) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return exception.New(moduleName, exception.KindStructural, "failed to write consolidated header", err)
	}
	for _, r := range records {
		row := []string{
			r.Model,
			r.Scenario,
			strconv.Itoa(r.Year),
			formatNullable(r.AnnualMWh),
			formatNullable(r.CapacityFactor),
			formatNullable(r.ElapsedS),
			r.ProfilePath,
			string(r.LogStatus),
			r.LogMessage,
		}
		if err := w.Write(row); err != nil {
			return exception.New(moduleName, exception.KindStructural, "failed to write consolidated row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exception.New(moduleName, exception.KindStructural, "failed to flush consolidated rows", err)
	}

	if err := c.conn.Upload(ctx, "", consolidatedObject, &buf, "text/csv"); err != nil {
		return exception.New(moduleName, exception.KindStructural, "failed to upload consolidated table", err)
	}
	return nil
}

// formatNullable renders a nullable metric, empty for non-OK rows.
func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
