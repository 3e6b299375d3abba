package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func gooseDB(db *gorm.DB) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	goose.SetBaseFS(migrationsFS)
	return sqlDB, nil
}

// RunMigrations applies every pending migration and returns the resulting
// schema version.
func RunMigrations(ctx context.Context, db *gorm.DB) (int64, error) {
	sqlDB, err := gooseDB(db)
	if err != nil {
		return 0, err
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	return schemaVersion(ctx, sqlDB)
}

// ResetDatabase rolls every migration back and applies them again, leaving
// an empty catalog at the latest schema version.
func ResetDatabase(ctx context.Context, db *gorm.DB) (int64, error) {
	sqlDB, err := gooseDB(db)
	if err != nil {
		return 0, err
	}
	if err := goose.ResetContext(ctx, sqlDB, "migrations"); err != nil {
		return 0, fmt.Errorf("reset: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	return schemaVersion(ctx, sqlDB)
}

func schemaVersion(ctx context.Context, sqlDB *sql.DB) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("migration version: %w", err)
	}
	return version, nil
}
