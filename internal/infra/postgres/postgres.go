package postgres

import (
	"errors"
	"strings"
	"time"

	"shop-console/internal/repository/gormrepo"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres opens a hosted Postgres store (for example a Supabase project)
// and migrates the console tables.
func NewPostgres(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := gormrepo.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
