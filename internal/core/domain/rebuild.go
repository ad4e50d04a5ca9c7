package domain

import "time"

// Task IDs for the rebuild operations the external scheduler may trigger.
const (
	TaskCatalogIndex   = "catalog-index"
	TaskKnowledgeIndex = "knowledge-index"
)

// DefaultRebuildWindow is the skip-if-recent window: a successful rebuild
// within this window is not repeated unless forced.
const DefaultRebuildWindow = 30 * time.Minute

// RebuildStatus describes the outcome of a single rebuild attempt.
type RebuildStatus string

const (
	// RebuildCompleted means new artifacts were built and swapped in.
	RebuildCompleted RebuildStatus = "completed"

	// RebuildSkipped means a recent successful rebuild made this one a no-op.
	RebuildSkipped RebuildStatus = "skipped"

	// RebuildFailed means the attempt failed; the previous artifacts remain
	// in place. Retry policy belongs to the external scheduler.
	RebuildFailed RebuildStatus = "failed"
)

// RebuildReport is returned to the scheduler after each rebuild invocation.
type RebuildReport struct {
	// Task identifies the rebuild operation.
	Task string `json:"task"`

	// Status is the attempt outcome.
	Status RebuildStatus `json:"status"`

	// Items is the number of items or chunks indexed.
	Items int `json:"items"`

	// StartedAt is when the attempt began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the attempt.
	Duration time.Duration `json:"duration"`

	// Error holds the failure message when Status is RebuildFailed.
	Error string `json:"error,omitempty"`
}

// RebuildAttempt is the persisted record of one rebuild invocation,
// kept for bookkeeping and the skip-if-recent policy.
type RebuildAttempt struct {
	// Task identifies the rebuild operation.
	Task string

	// StartedAt is when the attempt began.
	StartedAt time.Time

	// EndedAt is when the attempt finished.
	EndedAt time.Time

	// Success indicates whether the attempt completed without error.
	Success bool

	// Items is the number of items or chunks processed.
	Items int

	// Error contains the failure message when Success is false.
	Error string
}
