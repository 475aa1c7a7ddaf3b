package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"metinanaliz/internal/models"
)

const (
	DefaultLogLimit    = 50
	DefaultRecentLimit = 3
)

const logColumns = `id, timestamp, files, prompt_type, success, result_file, notes, tags, starred`

// LogProcessing records one processing attempt and returns its id.
func (s *Service) LogProcessing(ctx context.Context, files []string, promptType string, success bool, resultFile string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_logs (timestamp, files, prompt_type, success, result_file, starred)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		time.Now().UTC(), strings.Join(files, ", "), promptType, success, nullString(resultFile),
	)
	if err != nil {
		return 0, fmt.Errorf("insert processing log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("processing log id: %w", err)
	}
	return id, nil
}

// ListLogs returns the newest logs first.
func (s *Service) ListLogs(ctx context.Context, limit int) ([]models.ProcessingLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM processing_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list processing logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ProcessingLog
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing logs: %w", err)
	}
	return logs, nil
}

// RecentLogs is ListLogs with the smaller default used by the dashboard.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]models.ProcessingLog, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.ListLogs(ctx, limit)
}

func (s *Service) GetLog(ctx context.Context, id int64) (*models.ProcessingLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM processing_logs WHERE id = ?`, id)
	entry, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get log %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Service) UpdateLogNotes(ctx context.Context, id int64, notes string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE processing_logs SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("update log notes: %w", err)
	}
	return requireAffected(res, "log", id)
}

// ToggleLogStar flips the starred flag and returns the new value.
func (s *Service) ToggleLogStar(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var starred bool
	if err := tx.QueryRowContext(ctx, `SELECT starred FROM processing_logs WHERE id = ?`, id).Scan(&starred); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("toggle star %d: %w", id, ErrNotFound)
		}
		return false, fmt.Errorf("lookup star: %w", err)
	}
	starred = !starred
	if _, err := tx.ExecContext(ctx, `UPDATE processing_logs SET starred = ? WHERE id = ?`, starred, id); err != nil {
		return false, fmt.Errorf("update star: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit star: %w", err)
	}
	return starred, nil
}

// SetLogTags replaces the tag list of a log.
func (s *Service) SetLogTags(ctx context.Context, id int64, tags []string) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE processing_logs SET tags = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return fmt.Errorf("update log tags: %w", err)
	}
	return requireAffected(res, "log", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (models.ProcessingLog, error) {
	var (
		entry      models.ProcessingLog
		resultFile sql.NullString
		notes      sql.NullString
		tags       sql.NullString
	)
	err := row.Scan(&entry.ID, &entry.Timestamp, &entry.Files, &entry.PromptType, &entry.Success,
		&resultFile, &notes, &tags, &entry.Starred)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry, err
		}
		return entry, fmt.Errorf("scan processing log: %w", err)
	}
	entry.ResultFile = resultFile.String
	entry.Notes = notes.String
	entry.Tags = decodeTags(tags.String)
	return entry, nil
}

func decodeTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}

func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
