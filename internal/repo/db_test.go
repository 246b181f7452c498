package repo

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dkozyrev/tg-filestore/internal/domain"
)

func TestOpenSQLite_MissingParentDirectory(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "no", "such", "dir", "store.db"))
	if err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
	if !strings.Contains(err.Error(), "database directory") {
		t.Fatalf("err = %v; want the directory named as the cause", err)
	}
}

func TestOpenSQLite_OpensAndMigrates(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	var mode string
	if err := db.Raw("PRAGMA journal_mode;").Scan(&mode).Error; err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("journal_mode = %q; want wal", mode)
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	// The migrated schema accepts a row in each table family.
	if _, err := CreateContentItem(context.Background(), db, "f", domain.KindDocument, "", "", 1); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}
	if _, err := GetOrCreateSettings(context.Background(), db); err != nil {
		t.Fatalf("settings after migrate: %v", err)
	}
}
