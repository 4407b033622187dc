package database

import (
	"example.com/annapurna/services/donations/config"
	"example.com/annapurna/services/donations/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the write and read-only database connections and runs
// migrations on the write side. When no read-only DSN is configured the
// write connection serves reads too.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, *gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	readOnlyDB := db
	if cfg.ReadOnlyDSN != "" {
		readOnlyDB, err = gorm.Open(postgres.Open(cfg.ReadOnlyDSN), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
		}
	}

	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	if err := configurePool(db, cfg); err != nil {
		return nil, nil, err
	}
	if readOnlyDB != db {
		if err := configurePool(readOnlyDB, cfg); err != nil {
			return nil, nil, err
		}
	}

	return db, readOnlyDB, nil
}

func configurePool(db *gorm.DB, cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return nil
}

// Close closes the underlying connection of a gorm DB.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
