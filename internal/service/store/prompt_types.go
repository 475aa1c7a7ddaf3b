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

// SavePromptType inserts a prompt type, or updates the prompt text when the
// name already exists. created reports which happened.
func (s *Service) SavePromptType(ctx context.Context, name, text string) (pt models.CustomPromptType, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(text) == "" {
		return pt, false, apperr.Validation("name and prompt_text are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pt, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`SELECT id, name, prompt_text, created_at FROM custom_prompt_types WHERE name = ?`, name,
	).Scan(&pt.ID, &pt.Name, &pt.PromptText, &pt.CreatedAt)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `UPDATE custom_prompt_types SET prompt_text = ? WHERE id = ?`, text, pt.ID); err != nil {
			return pt, false, fmt.Errorf("update prompt type: %w", err)
		}
		pt.PromptText = text
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO custom_prompt_types (name, prompt_text, created_at) VALUES (?, ?, ?)`, name, text, now)
		if err != nil {
			return pt, false, fmt.Errorf("insert prompt type: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return pt, false, fmt.Errorf("prompt type id: %w", err)
		}
		pt = models.CustomPromptType{ID: id, Name: name, PromptText: text, CreatedAt: now}
		created = true
	default:
		return pt, false, fmt.Errorf("lookup prompt type: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return pt, false, fmt.Errorf("commit prompt type: %w", err)
	}
	return pt, created, nil
}

func (s *Service) ListPromptTypes(ctx context.Context) ([]models.CustomPromptType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, prompt_text, created_at FROM custom_prompt_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list prompt types: %w", err)
	}
	defer rows.Close()

	var out []models.CustomPromptType
	for rows.Next() {
		var pt models.CustomPromptType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.PromptText, &pt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt type: %w", err)
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt types: %w", err)
	}
	return out, nil
}

// PromptTypeByName looks a custom prompt type up by its unique name.
func (s *Service) PromptTypeByName(ctx context.Context, name string) (*models.CustomPromptType, error) {
	var pt models.CustomPromptType
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, prompt_text, created_at FROM custom_prompt_types WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&pt.ID, &pt.Name, &pt.PromptText, &pt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("prompt type %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("lookup prompt type: %w", err)
	}
	return &pt, nil
}

// UpdatePromptType renames and rewrites a prompt type. The new name must not
// belong to another record.
func (s *Service) UpdatePromptType(ctx context.Context, id int64, name, text string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(text) == "" {
		return apperr.Validation("name and prompt_text are required")
	}
	var other int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM custom_prompt_types WHERE name = ? AND id != ?`, name, id,
	).Scan(&other)
	if err == nil {
		return ErrNameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check prompt type name: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE custom_prompt_types SET name = ?, prompt_text = ? WHERE id = ?`, name, text, id)
	if err != nil {
		return fmt.Errorf("update prompt type: %w", err)
	}
	return requireAffected(res, "prompt type", id)
}

func (s *Service) DeletePromptType(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_prompt_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete prompt type: %w", err)
	}
	return requireAffected(res, "prompt type", id)
}
