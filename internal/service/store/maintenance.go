package store

import (
	"context"
	"fmt"
	"time"

	"metinanaliz/internal/storage"
)

// DedupeReport counts rows removed by Deduplicate.
type DedupeReport struct {
	SavedResults int64 `json:"saved_results"`
	Logs         int64 `json:"logs"`
}

// Deduplicate keeps the oldest row of every group of identical saved results
// and processing logs.
func (s *Service) Deduplicate(ctx context.Context) (DedupeReport, error) {
	var report DedupeReport
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM saved_results WHERE id NOT IN (
		SELECT keep_id FROM (
			SELECT MIN(id) AS keep_id FROM saved_results GROUP BY title, description, content, result_type
		) AS keep
	)`)
	if err != nil {
		return report, fmt.Errorf("dedupe saved results: %w", err)
	}
	report.SavedResults, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM processing_logs WHERE id NOT IN (
		SELECT keep_id FROM (
			SELECT MIN(id) AS keep_id FROM processing_logs GROUP BY files, prompt_type, result_file
		) AS keep
	)`)
	if err != nil {
		return report, fmt.Errorf("dedupe processing logs: %w", err)
	}
	report.Logs, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit dedupe: %w", err)
	}
	return report, nil
}

// Backup snapshots the database into dir keeping the newest keep copies.
func (s *Service) Backup(ctx context.Context, dir string, keep int) (string, error) {
	return storage.Backup(ctx, s.db, s.driver, dir, keep, time.Now())
}
