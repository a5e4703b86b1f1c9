package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/camposclima/heliomorph/internal/domain/model"
	"github.com/camposclima/heliomorph/internal/storage"
	"github.com/camposclima/heliomorph/pkg/support/exception"
)

// logBucket is the logical bucket holding per-pair simulation log documents.
const logBucket = "logs"

// LogName returns the canonical log object name for one (scenario, year).
func LogName(scenario string, year int) string {
	return fmt.Sprintf("log_%s_%d.json", scenario, year)
}

// LogStore persists one small JSON log document per (scenario, year).
type LogStore struct {
	conn storage.StorageConnection
}

// NewLogStore creates a LogStore on the artifact storage connection.
func NewLogStore(conn storage.StorageConnection) *LogStore {
	return &LogStore{conn: conn}
}

// Write uploads the log record atomically, replacing any previous run's log.
func (s *LogStore) Write(ctx context.Context, rec *model.SimulationLogRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return exception.New(moduleName, exception.KindSimulation,
			fmt.Sprintf("failed to marshal log for %s/%d", rec.Scenario, rec.Year), err)
	}
	name := LogName(rec.Scenario, rec.Year)
	if err := s.conn.Upload(ctx, logBucket, name, bytes.NewReader(data), "application/json"); err != nil {
		return exception.New(moduleName, exception.KindSimulation,
			fmt.Sprintf("failed to upload log '%s'", name), err)
	}
	return nil
}

// Read returns the log record for the pair, or (nil, nil) when no log exists.
func (s *LogStore) Read(ctx context.Context, scenario string, year int) (*model.SimulationLogRecord, error) {
	name := LogName(scenario, year)

	ok, err := s.conn.Exists(ctx, logBucket, name)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindSimulation,
			fmt.Sprintf("failed to probe log '%s'", name), err)
	}
	if !ok {
		return nil, nil
	}

	rc, err := s.conn.Download(ctx, logBucket, name)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindSimulation,
			fmt.Sprintf("failed to open log '%s'", name), err)
	}
	defer rc.Close()

	var rec model.SimulationLogRecord
	if err := json.NewDecoder(rc).Decode(&rec); err != nil {
		return nil, exception.New(moduleName, exception.KindSimulation,
			fmt.Sprintf("log '%s' is corrupt", name), err)
	}
	return &rec, nil
}

// Path returns the logical artifact path of one log.
func (s *LogStore) Path(scenario string, year int) string {
	return logBucket + "/" + LogName(scenario, year)
}
