package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupPrefix = "text_analysis_backup_"

// ErrBackupUnsupported is returned for drivers without a file snapshot.
var ErrBackupUnsupported = errors.New("backup not supported for driver")

// Backup snapshots a SQLite database into dir with VACUUM INTO and keeps only
// the newest keep snapshots.
func Backup(ctx context.Context, db *sql.DB, driver, dir string, keep int, now time.Time) (string, error) {
	if !IsSQLite(driver) {
		return "", fmt.Errorf("%w: %s", ErrBackupUnsupported, driver)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	name := fmt.Sprintf("%s%s_%09d.db", backupPrefix, now.Format("20060102150405"), now.Nanosecond())
	path := filepath.Join(dir, name)
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	if err := pruneBackups(dir, keep); err != nil {
		return path, err
	}
	return path, nil
}

// ListBackups returns snapshot paths oldest first.
func ListBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

func pruneBackups(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	paths, err := ListBackups(dir)
	if err != nil {
		return err
	}
	if len(paths) <= keep {
		return nil
	}
	for _, p := range paths[:len(paths)-keep] {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove old backup %s: %w", p, err)
		}
	}
	return nil
}
