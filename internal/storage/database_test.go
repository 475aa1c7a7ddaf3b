package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"metinanaliz/internal/config"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := openMemory(t)
	if err := Migrate(db, "sqlite"); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	for _, table := range []string{"processing_logs", "saved_results", "custom_prompt_types", "app_settings"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := Migrate(nil, "oracle"); err == nil {
		t.Fatalf("expected migrate error")
	}
}

func TestBackupKeepsNewest(t *testing.T) {
	db := openMemory(t)
	dir := t.TempDir()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var last string
	for i := 0; i < 7; i++ {
		path, err := Backup(context.Background(), db, "sqlite", dir, 5, base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("backup %d: %v", i, err)
		}
		last = path
	}
	paths, err := ListBackups(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 5 {
		t.Fatalf("expected 5 backups, got %d", len(paths))
	}
	if paths[len(paths)-1] != last {
		t.Fatalf("newest backup pruned: %v", paths)
	}
	if filepath.Base(paths[0]) != "text_analysis_backup_20240501100200_000000000.db" {
		t.Fatalf("unexpected oldest kept backup %s", paths[0])
	}
}

func TestBackupUnsupportedDriver(t *testing.T) {
	_, err := Backup(context.Background(), nil, "mysql", t.TempDir(), 5, time.Now())
	if !errors.Is(err, ErrBackupUnsupported) {
		t.Fatalf("expected ErrBackupUnsupported, got %v", err)
	}
}
