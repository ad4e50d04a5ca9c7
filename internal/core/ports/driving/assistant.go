package driving

import (
	"context"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// AssistantService answers shopping questions grounded in the knowledge base.
type AssistantService interface {
	// Ask retrieves relevant knowledge chunks for the question and produces
	// an answer, generated when a backend is configured or rule-based
	// otherwise. The answer always carries a fresh trace id, a confidence
	// equal to the top retrieved score, and the list of source chunks.
	Ask(ctx context.Context, question string, userContext map[string]string) (*domain.Answer, error)

	// Ingest adds documents to the knowledge base and extends the
	// retrieval index incrementally.
	Ingest(ctx context.Context, docs []domain.KnowledgeDocument) error
}
