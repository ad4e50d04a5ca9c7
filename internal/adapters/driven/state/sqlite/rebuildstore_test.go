package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

func openTestStore(t *testing.T) *RebuildStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func attempt(task string, endedAt time.Time, success bool, items int) *domain.RebuildAttempt {
	return &domain.RebuildAttempt{
		Task:      task,
		StartedAt: endedAt.Add(-time.Minute),
		EndedAt:   endedAt,
		Success:   success,
		Items:     items,
	}
}

func TestLastSuccessZeroWhenNeverRun(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LastSuccess(context.Background(), domain.TaskCatalogIndex)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestLastSuccessIgnoresFailures(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordAttempt(ctx, attempt(domain.TaskCatalogIndex, ok, true, 120)))

	failed := attempt(domain.TaskCatalogIndex, ok.Add(time.Hour), false, 0)
	failed.Error = "embedding backend unreachable"
	require.NoError(t, s.RecordAttempt(ctx, failed))

	got, err := s.LastSuccess(ctx, domain.TaskCatalogIndex)
	require.NoError(t, err)
	assert.Equal(t, ok, got)
}

func TestLastSuccessIsPerTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ended := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordAttempt(ctx, attempt(domain.TaskKnowledgeIndex, ended, true, 40)))

	got, err := s.LastSuccess(ctx, domain.TaskCatalogIndex)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestHistoryMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordAttempt(ctx,
			attempt(domain.TaskCatalogIndex, base.Add(time.Duration(i)*time.Hour), true, 100+i)))
	}

	history, err := s.History(ctx, domain.TaskCatalogIndex, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 102, history[0].Items)
	assert.Equal(t, 101, history[1].Items)
	assert.True(t, history[0].Success)
}

func TestPruneHistoryKeepsMostRecentPerTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordAttempt(ctx,
			attempt(domain.TaskCatalogIndex, base.Add(time.Duration(i)*time.Hour), true, i)))
	}
	require.NoError(t, s.RecordAttempt(ctx, attempt(domain.TaskKnowledgeIndex, base, true, 9)))

	require.NoError(t, s.PruneHistory(ctx, 2))

	catalog, err := s.History(ctx, domain.TaskCatalogIndex, 10)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, 4, catalog[0].Items)
	assert.Equal(t, 3, catalog[1].Items)

	// The other task's single attempt survives.
	knowledge, err := s.History(ctx, domain.TaskKnowledgeIndex, 10)
	require.NoError(t, err)
	assert.Len(t, knowledge, 1)
}
