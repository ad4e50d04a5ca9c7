package driven

import (
	"context"
	"time"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// RebuildStore persists rebuild bookkeeping so that the skip-if-recent
// policy survives process restarts.
type RebuildStore interface {
	// LastSuccess returns when the task last completed successfully.
	// Returns the zero time when the task has never succeeded.
	LastSuccess(ctx context.Context, task string) (time.Time, error)

	// RecordAttempt logs a rebuild attempt outcome.
	RecordAttempt(ctx context.Context, attempt *domain.RebuildAttempt) error

	// History returns recent attempts for a task, most recent first.
	History(ctx context.Context, task string, limit int) ([]domain.RebuildAttempt, error)

	// PruneHistory removes old attempts beyond the retention limit.
	// Keeps the most recent 'keep' attempts per task.
	PruneHistory(ctx context.Context, keep int) error
}
