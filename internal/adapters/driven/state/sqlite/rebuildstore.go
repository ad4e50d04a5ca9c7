// Package sqlite persists rebuild bookkeeping in a SQLite database so
// the skip-if-recent policy survives process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
)

// Ensure RebuildStore implements the interface.
var _ driven.RebuildStore = (*RebuildStore)(nil)

// RebuildStore records rebuild attempts in a rebuild_attempts table.
type RebuildStore struct {
	db *sql.DB
}

// Open opens or creates the state database.
func Open(path string) (*RebuildStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rebuild_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			success INTEGER NOT NULL,
			items INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_attempts_task ON rebuild_attempts(task, started_at DESC);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure state schema: %w", err)
	}
	return &RebuildStore{db: db}, nil
}

// Close closes the database connection.
func (s *RebuildStore) Close() error {
	return s.db.Close()
}

// LastSuccess returns when the task last completed successfully, or the
// zero time if it never has.
func (s *RebuildStore) LastSuccess(ctx context.Context, task string) (time.Time, error) {
	var endedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT ended_at FROM rebuild_attempts WHERE task = ? AND success = 1 ORDER BY ended_at DESC LIMIT 1",
		task).Scan(&endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last success %s: %w", task, err)
	}
	return time.Unix(endedAt, 0).UTC(), nil
}

// RecordAttempt logs a rebuild attempt outcome.
func (s *RebuildStore) RecordAttempt(ctx context.Context, attempt *domain.RebuildAttempt) error {
	success := 0
	if attempt.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rebuild_attempts (task, started_at, ended_at, success, items, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.Task, attempt.StartedAt.Unix(), attempt.EndedAt.Unix(),
		success, attempt.Items, attempt.Error)
	if err != nil {
		return fmt.Errorf("record attempt %s: %w", attempt.Task, err)
	}
	return nil
}

// History returns recent attempts for a task, most recent first.
func (s *RebuildStore) History(ctx context.Context, task string, limit int) ([]domain.RebuildAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, started_at, ended_at, success, items, error
		FROM rebuild_attempts WHERE task = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`, task, limit)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", task, err)
	}
	defer rows.Close()

	var attempts []domain.RebuildAttempt
	for rows.Next() {
		var a domain.RebuildAttempt
		var started, ended int64
		var success int
		if err := rows.Scan(&a.Task, &started, &ended, &success, &a.Items, &a.Error); err != nil {
			return nil, fmt.Errorf("history %s: %w", task, err)
		}
		a.StartedAt = time.Unix(started, 0).UTC()
		a.EndedAt = time.Unix(ended, 0).UTC()
		a.Success = success == 1
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history %s: %w", task, err)
	}
	return attempts, nil
}

// PruneHistory keeps the most recent 'keep' attempts per task and drops
// the rest.
func (s *RebuildStore) PruneHistory(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM rebuild_attempts WHERE id NOT IN (
			SELECT id FROM rebuild_attempts AS r
			WHERE (
				SELECT COUNT(*) FROM rebuild_attempts AS newer
				WHERE newer.task = r.task
				  AND (newer.started_at > r.started_at
				       OR (newer.started_at = r.started_at AND newer.id >= r.id))
			) <= ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}
