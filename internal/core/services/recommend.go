package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driving"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
	"github.com/smartmarket-labs/retrieval-engine/internal/similarity"
)

// Ensure RecommendService implements the interface.
var _ driving.RecommendService = (*RecommendService)(nil)

// RecommendService serves content-based neighbour recommendations from
// the similarity ranker, with a result cache in front.
type RecommendService struct {
	engine *Engine
}

// NewRecommendService creates the recommendation service.
func NewRecommendService(engine *Engine) *RecommendService {
	return &RecommendService{engine: engine}
}

// Recommend returns up to k neighbours of the item, MMR re-ranked when
// diverse is set. An unknown id or a not-yet-built index yields an empty
// slice, never an error.
func (s *RecommendService) Recommend(ctx context.Context, itemID int64, k int, diverse bool) ([]domain.Recommendation, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("recommend: item id %d: %w", itemID, domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = domain.DefaultRecommendK
	}
	if k > domain.MaxRecommendK {
		k = domain.MaxRecommendK
	}

	key := driven.RecommendKey{ItemID: itemID, K: k, Diverse: diverse}
	if data, ok := s.engine.cacheGet(ctx, key); ok {
		var cached []domain.Recommendation
		if err := json.Unmarshal(data, &cached); err == nil {
			logger.Debug("recommend cache hit: item=%d k=%d diverse=%t", itemID, k, diverse)
			return cached, nil
		}
	}

	snap, err := s.engine.catalogReady(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			logger.Debug("recommend: engine not ready, empty result")
			return []domain.Recommendation{}, nil
		}
		return nil, err
	}

	var recs []domain.Recommendation
	if diverse {
		recs = snap.ranker.DiverseNeighbors(itemID, k, similarity.DefaultLambda)
	} else {
		recs = snap.ranker.Neighbors(itemID, k, true, similarity.DefaultMinScore)
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	if data, err := json.Marshal(recs); err == nil {
		s.engine.cacheSet(ctx, key, data)
	}
	logger.Debug("recommend: item=%d k=%d diverse=%t -> %d results", itemID, k, diverse, len(recs))
	return recs, nil
}
