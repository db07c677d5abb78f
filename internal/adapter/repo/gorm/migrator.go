package gormrepo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

const migrationLockKey = 74210391

const createMigrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// ApplyMigrations runs every *.sql file of fsys, in name order, that is not yet
// recorded in schema_migrations. Each file runs in its own transaction holding
// an advisory lock, so replicas starting together apply a file once.
func ApplyMigrations(ctx context.Context, db *gorm.DB, fsys fs.FS, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.WithContext(ctx).Exec(createMigrationsTableSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	files, err := migrationFiles(fsys)
	if err != nil {
		return err
	}
	applied := 0
	for _, name := range files {
		ran, err := applyMigration(ctx, db, fsys, name)
		if err != nil {
			return err
		}
		if ran {
			applied++
			logger.Info("migration applied", "file", name)
		}
	}
	logger.Debug("migrations up to date", "files", len(files), "applied", applied)
	return nil
}

func applyMigration(ctx context.Context, db *gorm.DB, fsys fs.FS, name string) (bool, error) {
	version := strings.TrimSuffix(name, ".sql")
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", name, err)
	}
	ran := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		var count int64
		if err := tx.Table("schema_migrations").Where("version = ?", version).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if count > 0 {
			return nil
		}
		if err := tx.Exec(string(content)).Error; err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := tx.Exec("INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)", version, time.Now().UTC()).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		ran = true
		return nil
	})
	return ran, err
}

func migrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(name, ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}
