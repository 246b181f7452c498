// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file opens the SQLite store and migrates the schema.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/domain"
)

// OpenSQLite opens (or creates) the bot's SQLite database at path.
func OpenSQLite(path string) (*gorm.DB, error) {
	// A missing parent directory surfaces from the driver as an unrelated
	// "out of memory (14)"; check it up front and report the real cause.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// WAL lets the ops server read health while the update loop writes;
	// the busy timeout covers the short writer overlap that still occurs.
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Traffic is a single update loop plus the health probe, so the pool
	// stays small.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.ContentItem{},
		&domain.Batch{},
		&domain.BatchItem{},
		&domain.Settings{},
		&domain.User{},
	)
}
