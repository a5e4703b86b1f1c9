package analyze

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// analysisBucket is the logical bucket holding analysis tables.
const analysisBucket = "analysis"

// Exporter writes the analysis report as CSV and Parquet tables
// (summary_by_year, summary_decadal, trends, coverage). Export failures are
// aggregated so one broken table does not hide the others.
type Exporter struct {
	conn storage.StorageConnection
}

// NewExporter creates an Exporter on the artifact storage connection.
func NewExporter(conn storage.StorageConnection) *Exporter {
	return &Exporter{conn: conn}
}

// Export writes every report table in both formats.
func (e *Exporter) Export(ctx context.Context, report *Report) error {
	var result *multierror.Error

	if err := e.exportCSV(ctx, "summary_by_year.csv", yearSummaryCSV(report.Summaries)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.exportCSV(ctx, "summary_decadal.csv", decadalCSV(report.Decadal)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.exportCSV(ctx, "trends.csv", trendCSV(report.Trends)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := e.exportCSV(ctx, "coverage.csv", coverageCSV(report.Coverage)); err != nil {
		result = multierror.Append(result, err)
	}

	if err := exportParquet(ctx, e.conn, "summary_by_year.parquet", new(model.YearSummary), asAnySlice(report.Summaries)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := exportParquet(ctx, e.conn, "summary_decadal.parquet", new(model.DecadalSummary), asAnySlice(report.Decadal)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := exportParquet(ctx, e.conn, "trends.parquet", new(model.TrendResult), asAnySlice(report.Trends)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := exportParquet(ctx, e.conn, "coverage.parquet", new(model.Coverage), asAnySlice(report.Coverage)); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// exportCSV uploads one CSV table.
func (e *Exporter) exportCSV(ctx context.Context, name string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return exception.New(moduleName, exception.KindStructural,
				fmt.Sprintf("failed to write analysis table '%s'", name), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exception.New(moduleName, exception.KindStructural,
			fmt.Sprintf("failed to flush analysis table '%s'", name), err)
	}

	if err := e.conn.Upload(ctx, analysisBucket, name, &buf, "text/csv"); err != nil {
		return exception.New(moduleName, exception.KindStructural,
			fmt.Sprintf("failed to upload analysis table '%s'", name), err)
	}
	logger.Infof("Exported analysis table %s (%d rows).", name, len(rows)-1)
	return nil
}

// exportParquet serializes rows with the prototype's parquet tags and uploads
// the table. WriteStop can panic inside the parquet library, so it runs
// behind a recover.
func exportParquet(ctx context.Context, conn storage.StorageConnection, name string, prototype interface{}, rows []interface{}) error {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, prototype, 1)
	if err != nil {
		return exception.New(moduleName, exception.KindStructural,
			fmt.Sprintf("failed to create parquet writer for '%s'", name), err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return exception.New(moduleName, exception.KindStructural,
				fmt.Sprintf("failed to write parquet row to '%s'", name), err)
		}
	}

	var stopErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(error); ok {
					stopErr = e
				} else {
					stopErr = fmt.Errorf("panic value: %v", r)
				}
			}
		}()
		stopErr = pw.WriteStop()
	}()
	if stopErr != nil {
		return exception.New(moduleName, exception.KindStructural,
			fmt.Sprintf("failed to finalize parquet table '%s'", name), stopErr)
	}

	if err := conn.Upload(ctx, analysisBucket, name, buf, "application/octet-stream"); err != nil {
		return exception.New(moduleName, exception.KindStructural,
			fmt.Sprintf("failed to upload parquet table '%s'", name), err)
	}
	logger.Infof("Exported analysis table %s (%d rows, %d bytes).", name, len(rows), buf.Len())
	return nil
}

func asAnySlice[T any](rows []T) []interface{} {
	out := make([]interface{}, len(rows))
	for i := range rows {
		out[i] = rows[i]
	}
	return out
}

func yearSummaryCSV(rows []model.YearSummary) [][]string {
	out := [][]string{{
		"model", "scenario", "year", "annual_mwh", "capacity_factor",
		"baseline_mwh", "baseline_cf", "delta_mwh_pct", "delta_cf_pct", "rolling_mwh",
	}}
	for _, r := range rows {
		out = append(out, []string{
			r.Model, r.Scenario, strconv.Itoa(int(r.Year)),
			formatFloat(r.AnnualMWh), formatFloat(r.CapacityFactor),
			formatFloat(r.BaselineMWh), formatFloat(r.BaselineCF),
			formatOptional(r.DeltaMWhPct), formatOptional(r.DeltaCFPct),
			formatOptional(r.RollingMWh),
		})
	}
	return out
}

func decadalCSV(rows []model.DecadalSummary) [][]string {
	out := [][]string{{
		"scenario", "decade", "mean_annual_mwh", "mean_capacity_factor",
		"mean_delta_mwh_pct", "mean_delta_cf_pct", "year_count",
	}}
	for _, r := range rows {
		out = append(out, []string{
			r.Scenario, r.Decade,
			formatFloat(r.MeanAnnualMWh), formatFloat(r.MeanCapacityFac),
			formatOptional(r.MeanDeltaMWhPct), formatOptional(r.MeanDeltaCFPct),
			strconv.Itoa(int(r.YearCount)),
		})
	}
	return out
}

func trendCSV(rows []model.TrendResult) [][]string {
	out := [][]string{{
		"scenario", "metric", "slope_pct_per_decade", "r2",
		"changepoint_year", "pettitt_u", "pettitt_p", "year_span", "n",
	}}
	for _, r := range rows {
		changeYear := ""
		if r.ChangepointYear != nil {
			changeYear = strconv.Itoa(int(*r.ChangepointYear))
		}
		out = append(out, []string{
			r.Scenario, r.Metric,
			formatOptional(r.SlopePctPerDecade), formatOptional(r.R2),
			changeYear, formatOptional(r.PettittU), formatOptional(r.PettittP),
			r.YearSpan, strconv.Itoa(int(r.N)),
		})
	}
	return out
}

func coverageCSV(rows []model.Coverage) [][]string {
	out := [][]string{{
		"scenario", "min_year", "max_year", "year_count", "missing_years",
		"ok_count", "error_count", "missing_log_count", "not_run_count",
	}}
	for _, r := range rows {
		out = append(out, []string{
			r.Scenario,
			strconv.Itoa(int(r.MinYear)), strconv.Itoa(int(r.MaxYear)),
			strconv.Itoa(int(r.YearCount)), r.MissingYears,
			strconv.Itoa(int(r.OKCount)), strconv.Itoa(int(r.ErrorCount)),
			strconv.Itoa(int(r.MissingLogCount)), strconv.Itoa(int(r.NotRunCount)),
		})
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
