package gridreader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/pkg/support/exception"
)

// parquetGridRow mirrors one row of a daily grid table stored as Parquet.
type parquetGridRow struct {
	Date  string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8"`
	Lat   float64 `parquet:"name=lat,type=DOUBLE"`
	Lon   float64 `parquet:"name=lon,type=DOUBLE"`
	Value float64 `parquet:"name=value,type=DOUBLE"`
}

// ParquetReader reads daily grid tables stored as Parquet files under
// <baseDir>/<scenario>/. It ranks above the CSV reader in the default chain.
type ParquetReader struct {
	baseDir string
}

// NewParquetReader creates a ParquetReader rooted at baseDir.
func NewParquetReader(baseDir string) *ParquetReader {
	return &ParquetReader{baseDir: baseDir}
}

var _ Reader = (*ParquetReader)(nil)

// Name returns "parquet".
func (r *ParquetReader) Name() string { return "parquet" }

// ReadDailySeries reads the year's daily table and keeps the grid cell
// nearest to loc.
func (r *ParquetReader) ReadDailySeries(ctx context.Context, climateModel string, variable model.Variable, scenario string, year int, loc model.Location) ([]Sample, error) {
	path := filepath.Join(r.baseDir, scenario, gridFileName(climateModel, variable, scenario, year, "parquet"))

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("parquet grid file not readable: %s", path), err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(parquetGridRow), 1)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("parquet grid file %s is malformed", path), err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	if num == 0 {
		return nil, exception.Newf(moduleName, exception.KindDataUnavailable,
			"parquet grid file %s contains no samples", path)
	}

	rows := make([]parquetGridRow, num)
	if err := pr.Read(&rows); err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("failed to read parquet grid file %s", path), err)
	}

	samples := make([]Sample, 0, len(rows))
	for _, row := range rows {
		t, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return nil, exception.New(moduleName, exception.KindDataUnavailable,
				fmt.Sprintf("parquet grid file %s has a bad date '%s'", path, row.Date), err)
		}
		samples = append(samples, Sample{Time: t, Lat: row.Lat, Lon: row.Lon, Value: row.Value})
	}

	lat, lon, _ := nearestCell(samples, loc)
	return filterCell(samples, lat, lon), nil
}
