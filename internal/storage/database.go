package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"metinanaliz/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// IsSQLite reports whether driver is one of the SQLite drivers
// ("sqlite3" is the cgo driver, "sqlite" the pure-Go one).
func IsSQLite(driver string) bool {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return true
	}
	return false
}

// Open connects to the configured database.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "sqlite", "sqlite3":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open(driver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// A single connection keeps :memory: databases intact and serializes writers.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = FULL",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("sqlite %q: %w", pragma, err)
			}
		}
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
				cfg.Username,
				cfg.Password,
				cfg.Host,
				cfg.Port,
				cfg.DBName,
				cfg.Params,
			)
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS processing_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp DATETIME NOT NULL,
				files TEXT NOT NULL,
				prompt_type TEXT NOT NULL,
				success INTEGER NOT NULL DEFAULT 0,
				result_file TEXT,
				notes TEXT,
				tags TEXT,
				starred INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_processing_logs_timestamp ON processing_logs(timestamp DESC)`,
			`CREATE TABLE IF NOT EXISTS saved_results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				description TEXT,
				result_type TEXT NOT NULL,
				content TEXT NOT NULL,
				source_file TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				processing_log_id INTEGER,
				FOREIGN KEY(processing_log_id) REFERENCES processing_logs(id) ON DELETE SET NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_saved_results_created_at ON saved_results(created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS custom_prompt_types (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				prompt_text TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS app_settings (
				key TEXT PRIMARY KEY,
				value TEXT
			)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS processing_logs (
				id BIGINT NOT NULL AUTO_INCREMENT,
				timestamp DATETIME(6) NOT NULL,
				files TEXT NOT NULL,
				prompt_type VARCHAR(255) NOT NULL,
				success TINYINT(1) NOT NULL DEFAULT 0,
				result_file VARCHAR(255),
				notes TEXT,
				tags TEXT,
				starred TINYINT(1) NOT NULL DEFAULT 0,
				PRIMARY KEY (id),
				INDEX idx_processing_logs_timestamp (timestamp)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS saved_results (
				id BIGINT NOT NULL AUTO_INCREMENT,
				title VARCHAR(512) NOT NULL,
				description TEXT,
				result_type VARCHAR(64) NOT NULL,
				content MEDIUMTEXT NOT NULL,
				source_file VARCHAR(255),
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NOT NULL,
				processing_log_id BIGINT,
				PRIMARY KEY (id),
				INDEX idx_saved_results_created_at (created_at),
				CONSTRAINT fk_saved_results_log FOREIGN KEY (processing_log_id) REFERENCES processing_logs(id) ON DELETE SET NULL
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS custom_prompt_types (
				id BIGINT NOT NULL AUTO_INCREMENT,
				name VARCHAR(255) NOT NULL UNIQUE,
				prompt_text TEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			"CREATE TABLE IF NOT EXISTS app_settings (\n" +
				"\t`key` VARCHAR(191) NOT NULL PRIMARY KEY,\n" +
				"\tvalue TEXT\n" +
				") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
