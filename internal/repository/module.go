package repository

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/camposclima/heliomorph/internal/config"
)

// NewResultsDB opens the configured results database and brings its schema up
// to date before anything else touches it.
func NewResultsDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg, ok := cfg.Heliomorph.Databases[config.ResultsDBRef]
	if !ok {
		return nil, fmt.Errorf("database connection '%s' is not configured", config.ResultsDBRef)
	}
	db, err := Open(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, dbCfg.Type); err != nil {
		return nil, err
	}
	return db, nil
}

// Module provides the results database and repository, and closes the
// underlying connection pool on shutdown.
var Module = fx.Options(
	fx.Provide(NewResultsDB),
	fx.Provide(NewResultRepository),
	fx.Invoke(func(lc fx.Lifecycle, db *gorm.DB) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		})
	}),
)
