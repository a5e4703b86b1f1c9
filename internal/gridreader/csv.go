package gridreader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/pkg/support/exception"
)

// CSVReader reads daily grid tables stored as flat CSV files with the header
// date,lat,lon,value under <baseDir>/<scenario>/.
type CSVReader struct {
	baseDir string
}

// NewCSVReader creates a CSVReader rooted at baseDir.
func NewCSVReader(baseDir string) *CSVReader {
	return &CSVReader{baseDir: baseDir}
}

var _ Reader = (*CSVReader)(nil)

// Name returns "csv".
func (r *CSVReader) Name() string { return "csv" }

// gridFileName is the flat-table naming convention shared by both backends.
func gridFileName(climateModel string, variable model.Variable, scenario string, year int, ext string) string {
	return fmt.Sprintf("%s_day_%s_%s_%d.%s", variable, climateModel, scenario, year, ext)
}

// ReadDailySeries reads the year's daily table and keeps the grid cell
// nearest to loc.
func (r *CSVReader) ReadDailySeries(ctx context.Context, climateModel string, variable model.Variable, scenario string, year int, loc model.Location) ([]Sample, error) {
	path := filepath.Join(r.baseDir, scenario, gridFileName(climateModel, variable, scenario, year, "csv"))

	f, err := os.Open(path)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("csv grid file not readable: %s", path), err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = 4

	header, err := cr.Read()
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("csv grid file has no header: %s", path), err)
	}
	if header[0] != "date" || header[1] != "lat" || header[2] != "lon" || header[3] != "value" {
		return nil, exception.Newf(moduleName, exception.KindDataUnavailable,
			"csv grid file %s has unexpected header %v", path, header)
	}

	var samples []Sample
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, exception.New(moduleName, exception.KindDataUnavailable,
				fmt.Sprintf("csv grid file %s is malformed", path), err)
		}

		t, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, exception.New(moduleName, exception.KindDataUnavailable,
				fmt.Sprintf("csv grid file %s has a bad date '%s'", path, rec[0]), err)
		}
		lat, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, exception.New(moduleName, exception.KindDataUnavailable,
				fmt.Sprintf("csv grid file %s has a bad lat '%s'", path, rec[1]), err)
		}
		lon, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, exception.New(moduleName, exception.KindDataUnavailable,
				fmt.Sprintf("csv grid file %s has a bad lon '%s'", path, rec[2]), err)
		}
		v, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, exception.New(moduleName, exception.KindDataUnavailable,
				fmt.Sprintf("csv grid file %s has a bad value '%s'", path, rec[3]), err)
		}

		samples = append(samples, Sample{Time: t, Lat: lat, Lon: lon, Value: v})
	}

	if len(samples) == 0 {
		return nil, exception.Newf(moduleName, exception.KindDataUnavailable,
			"csv grid file %s contains no samples", path)
	}

	lat, lon, _ := nearestCell(samples, loc)
	return filterCell(samples, lat, lon), nil
}
