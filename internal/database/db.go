package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/logger"
	"github.com/justsurfingit/Agentic-Job-Tracker/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Connect opens the Postgres pool, retrying while the database comes up, and
// migrates the schema.
func Connect(ctx context.Context, dsn string, logg *logger.Logger) (*gorm.DB, error) {
	var db *gorm.DB

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second

	err := backoff.RetryNotify(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), gormConfig(logg))
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return pingOrClose(ctx, sqlDB)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logg.Warn("Database not ready, retrying", "error", err, "retry_in", next)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logg.Info("Database connection established")

	logg.Info("Running migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// pingOrClose closes the pool when the database does not answer, so a failed
// attempt leaves no open connections behind for the next retry.
func pingOrClose(ctx context.Context, sqlDB *sql.DB) error {
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return err
	}
	return nil
}

func gormConfig(logg *logger.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logg, gormLogger.Warn, time.Second),
	}
}
