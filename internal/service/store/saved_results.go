package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"metinanaliz/internal/apperr"
	"metinanaliz/internal/models"
)

const savedResultColumns = `sr.id, sr.title, sr.description, sr.result_type, sr.content, sr.source_file,
	sr.created_at, sr.updated_at, sr.processing_log_id, pl.tags`

// SaveResult stores r and returns its id. When a result with the same title
// and content already exists its id is returned with existed set. Tags, when
// given, are written to the linked processing log.
func (s *Service) SaveResult(ctx context.Context, r models.SavedResult, tags []string) (id int64, existed bool, err error) {
	r.Title = strings.TrimSpace(r.Title)
	r.ResultType = strings.TrimSpace(r.ResultType)
	if r.Title == "" || r.ResultType == "" {
		return 0, false, apperr.Validation("title and result_type are required")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM saved_results WHERE title = ? AND content = ? LIMIT 1`, r.Title, r.Content,
	).Scan(&id)
	switch {
	case err == nil:
		return id, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, fmt.Errorf("lookup saved result: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_results (title, description, result_type, content, source_file, created_at, updated_at, processing_log_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Title, r.Description, r.ResultType, r.Content, nullString(r.SourceFile), now, now, nullInt(r.ProcessingLogID),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert saved result: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("saved result id: %w", err)
	}
	if r.ProcessingLogID > 0 && len(tags) > 0 {
		if err := s.SetLogTags(ctx, r.ProcessingLogID, tags); err != nil {
			return id, false, err
		}
	}
	return id, false, nil
}

// ListSavedResults returns one row per distinct content (the most recent of
// each group), newest first.
func (s *Service) ListSavedResults(ctx context.Context, filter models.SavedResultFilter) ([]models.SavedResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	var (
		where []string
		args  []any
	)
	where = append(where, `sr.id IN (SELECT MAX(id) FROM saved_results GROUP BY content)`)
	if t := strings.TrimSpace(filter.Type); t != "" {
		where = append(where, `sr.result_type = ?`)
		args = append(args, t)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + q + "%"
		where = append(where, `(sr.title LIKE ? OR sr.description LIKE ? OR sr.content LIKE ?)`)
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	query := `SELECT ` + savedResultColumns + `
		FROM saved_results sr
		LEFT JOIN processing_logs pl ON pl.id = sr.processing_log_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY sr.created_at DESC, sr.id DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list saved results: %w", err)
	}
	defer rows.Close()

	var out []models.SavedResult
	for rows.Next() {
		r, err := scanSavedResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved results: %w", err)
	}
	return out, nil
}

func (s *Service) GetSavedResult(ctx context.Context, id int64) (*models.SavedResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+savedResultColumns+`
		FROM saved_results sr
		LEFT JOIN processing_logs pl ON pl.id = sr.processing_log_id
		WHERE sr.id = ?`, id)
	r, err := scanSavedResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get saved result %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}

func (s *Service) DeleteSavedResult(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved result: %w", err)
	}
	return requireAffected(res, "saved result", id)
}

func scanSavedResult(row rowScanner) (models.SavedResult, error) {
	var (
		r           models.SavedResult
		description sql.NullString
		sourceFile  sql.NullString
		logID       sql.NullInt64
		tags        sql.NullString
	)
	err := row.Scan(&r.ID, &r.Title, &description, &r.ResultType, &r.Content, &sourceFile,
		&r.CreatedAt, &r.UpdatedAt, &logID, &tags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan saved result: %w", err)
	}
	r.Description = description.String
	r.SourceFile = sourceFile.String
	r.ProcessingLogID = logID.Int64
	r.Tags = decodeTags(tags.String)
	return r, nil
}
