package driven

import (
	"context"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// KnowledgeSource loads knowledge base documents for the RAG pipeline.
type KnowledgeSource interface {
	// Load reads every knowledge document from the source.
	Load(ctx context.Context) ([]domain.KnowledgeDocument, error)
}

// KnowledgeWatcher is an optional extension of KnowledgeSource that can
// notify when the underlying documents change, so the knowledge index can
// be re-ingested without polling.
type KnowledgeWatcher interface {
	// Watch invokes onChange whenever the source content changes, until
	// ctx is cancelled. It returns immediately; watching happens in the
	// background.
	Watch(ctx context.Context, onChange func()) error
}
