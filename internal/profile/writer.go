package profile

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/pkg/support/exception"
	"github.com/camposclima/heliomorph/pkg/support/logger"
)

// profileBucket is the logical bucket holding morphed profile CSVs.
const profileBucket = "profiles"

// FileName returns the canonical profile file name for one
// (model, scenario, year).
func FileName(climateModel, scenario string, year int) string {
	return fmt.Sprintf("SAM_%s_%s_%d_morph.csv", climateModel, scenario, year)
}

// Store writes and probes morphed profile artifacts on the artifact storage
// connection.
type Store struct {
	conn storage.StorageConnection
}

// NewStore creates a Store.
func NewStore(conn storage.StorageConnection) *Store {
	return &Store{conn: conn}
}

// Write serializes the profile as CSV and uploads it atomically. The output
// is deterministic for identical input so repeated morphs produce
// byte-identical artifacts.
func (s *Store) Write(ctx context.Context, climateModel, scenario string, year int, p *model.HourlyProfile) (string, error) {
	if p.Len() != model.HoursPerYear {
		return "", exception.Newf(moduleName, exception.KindStructural,
			"refusing to write profile with %d rows (expected %d)", p.Len(), model.HoursPerYear)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return "", exception.New(moduleName, exception.KindStructural, "failed to write profile header", err)
	}
	for _, r := range p.Records {
		row := []string{
			r.Time.Format("2006-01-02 15:04:05"),
			formatValue(r.GHI),
			formatValue(r.DNI),
			formatValue(r.DHI),
			formatValue(r.TempC),
			formatValue(r.WindSpeed),
			formatValue(r.RelHum),
		}
		if err := w.Write(row); err != nil {
			return "", exception.New(moduleName, exception.KindStructural, "failed to write profile row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", exception.New(moduleName, exception.KindStructural, "failed to flush profile rows", err)
	}

	name := FileName(climateModel, scenario, year)
	if err := s.conn.Upload(ctx, profileBucket, name, &buf, "text/csv"); err != nil {
		return "", exception.New(moduleName, exception.KindStructural,
			fmt.Sprintf("failed to upload profile '%s'", name), err)
	}

	logger.Infof("Wrote profile %s (%d rows).", name, p.Len())
	return profileBucket + "/" + name, nil
}

// Read loads a stored profile artifact back.
func (s *Store) Read(ctx context.Context, climateModel, scenario string, year int) (*model.HourlyProfile, error) {
	name := FileName(climateModel, scenario, year)
	rc, err := s.conn.Download(ctx, profileBucket, name)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDataUnavailable,
			fmt.Sprintf("failed to open profile '%s'", name), err)
	}
	defer rc.Close()
	return Parse(rc)
}

// Exists reports whether the profile artifact for the triple is present.
func (s *Store) Exists(ctx context.Context, climateModel, scenario string, year int) (bool, error) {
	return s.conn.Exists(ctx, profileBucket, FileName(climateModel, scenario, year))
}

// Path returns the logical artifact path of one profile.
func (s *Store) Path(climateModel, scenario string, year int) string {
	return profileBucket + "/" + FileName(climateModel, scenario, year)
}

// formatValue renders a float with stable, compact formatting.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
