package driving

import (
	"context"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// RebuildService is invoked by the external scheduler (or an operator)
// to rebuild file-backed artifacts. Rebuilds are idempotent within the
// skip-if-recent window unless forced.
type RebuildService interface {
	// RebuildCatalogIndex refits the lexical model, re-embeds every active
	// item and atomically replaces the embedding matrix and vector index.
	RebuildCatalogIndex(ctx context.Context, force bool) (*domain.RebuildReport, error)

	// RebuildKnowledgeIndex re-ingests the knowledge base and rebuilds the
	// retrieval index.
	RebuildKnowledgeIndex(ctx context.Context, force bool) (*domain.RebuildReport, error)

	// PurgeCache drops every cached serving result.
	PurgeCache(ctx context.Context) error

	// InvalidateItem drops cached results derived from the given item
	// after a catalog mutation.
	InvalidateItem(ctx context.Context, itemID int64) error
}

// StatusService exposes the engine's readiness and health signal.
type StatusService interface {
	// Status aggregates cache statistics, the manifest summary, the
	// artifact validation report and per-path readiness.
	Status(ctx context.Context) (*domain.EngineStatus, error)
}
