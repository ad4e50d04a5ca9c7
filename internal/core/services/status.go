package services

import (
	"context"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driving"
)

// Ensure StatusService implements the interface.
var _ driving.StatusService = (*StatusService)(nil)

// StatusService aggregates the engine's readiness and health signal.
type StatusService struct {
	engine *Engine
}

// NewStatusService creates the status service.
func NewStatusService(engine *Engine) *StatusService {
	return &StatusService{engine: engine}
}

// Status reports cache statistics, the manifest summary, the artifact
// validation report and per-path readiness. It never fails on a
// not-ready engine; readiness flags carry that information.
func (s *StatusService) Status(ctx context.Context) (*domain.EngineStatus, error) {
	status := &domain.EngineStatus{
		EmbeddingModel:  s.engine.embedder.ModelName(),
		EmbeddingOnline: s.engine.embedder.Ping(ctx) == nil,
	}

	if s.engine.cache != nil {
		status.Cache = s.engine.cache.Stats(ctx)
	} else {
		status.Cache = domain.CacheStats{Status: "disconnected", Entries: -1}
	}

	if s.engine.registry != nil {
		status.Manifest = s.engine.registry.Summary()
		status.Validation = s.engine.registry.Validate()
	}

	// Readiness probes attempt a snapshot load. Missing and corrupt
	// artifacts both leave the paths not-ready; the report never fails
	// over them.
	if _, err := s.engine.catalogReady(ctx); err == nil {
		status.RecommendReady = true
		status.SearchReady = true
	}

	if snap, err := s.engine.knowledgeReady(ctx); err == nil {
		status.AskReady = snap.index.Size() > 0
	}

	return status, nil
}
