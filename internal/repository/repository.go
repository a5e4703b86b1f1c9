package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/camposclima/heliomorph/internal/domain/model"
)

// ResultRepository persists and queries consolidated result rows.
type ResultRepository interface {
	// SaveAll upserts the records keyed by (model, scenario, year).
	SaveAll(ctx context.Context, records []model.ConsolidatedRecord) error
	// FindAll returns every record ordered by scenario then year.
	FindAll(ctx context.Context) ([]model.ConsolidatedRecord, error)
	// FindByScenario returns the records of one scenario ordered by year.
	FindByScenario(ctx context.Context, scenario string) ([]model.ConsolidatedRecord, error)
	// FindNonOK returns the records a caller would re-run.
	FindNonOK(ctx context.Context) ([]model.ConsolidatedRecord, error)
}

// gormResultRepository implements ResultRepository on GORM.
type gormResultRepository struct {
	db *gorm.DB
}

// NewResultRepository creates a ResultRepository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &gormResultRepository{db: db}
}

// SaveAll upserts all rows in one transaction. Re-consolidating is
// idempotent: the triple key makes repeated runs overwrite in place.
func (r *gormResultRepository) SaveAll(ctx context.Context, records []model.ConsolidatedRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "model"}, {Name: "scenario"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"annual_mwh", "capacity_factor", "elapsed_s",
			"profile_path", "log_path", "log_status", "log_message",
			"run_id", "created_at",
		}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d consolidated records: %w", len(records), err)
	}
	return nil
}

func (r *gormResultRepository) FindAll(ctx context.Context) ([]model.ConsolidatedRecord, error) {
	var records []model.ConsolidatedRecord
	err := r.db.WithContext(ctx).
		Order("scenario, year").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load consolidated records: %w", err)
	}
	return records, nil
}

func (r *gormResultRepository) FindByScenario(ctx context.Context, scenario string) ([]model.ConsolidatedRecord, error) {
	var records []model.ConsolidatedRecord
	err := r.db.WithContext(ctx).
		Where("scenario = ?", scenario).
		Order("year").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load consolidated records for scenario %s: %w", scenario, err)
	}
	return records, nil
}

func (r *gormResultRepository) FindNonOK(ctx context.Context) ([]model.ConsolidatedRecord, error) {
	var records []model.ConsolidatedRecord
	err := r.db.WithContext(ctx).
		Where("log_status <> ?", model.StatusOK).
		Order("scenario, year").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load non-OK consolidated records: %w", err)
	}
	return records, nil
}
