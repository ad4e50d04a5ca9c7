package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driving"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
	"github.com/smartmarket-labs/retrieval-engine/internal/textnorm"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// overFetchFactor is how many extra candidates the index returns before
// catalog post-filtering truncates to k.
const overFetchFactor = 3

// SearchService serves semantic catalog search: embed the query, rank
// by inner product against the item index, then post-filter through the
// catalog so price and category constraints see current data.
type SearchService struct {
	engine *Engine
}

// NewSearchService creates the search service.
func NewSearchService(engine *Engine) *SearchService {
	return &SearchService{engine: engine}
}

// Search returns up to k items matching the query and filters, ranked
// by descending similarity. A not-yet-built index yields an empty
// slice, never an error.
func (s *SearchService) Search(ctx context.Context, query string, k int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	if k <= 0 {
		k = domain.DefaultSearchK
	}
	if k > domain.MaxSearchK {
		k = domain.MaxSearchK
	}

	key := driven.SearchKey{
		Query:       query,
		K:           k,
		CategoryIDs: filters.CategoryIDs,
		MinPrice:    filters.MinPrice,
		MaxPrice:    filters.MaxPrice,
	}
	if data, ok := s.engine.cacheGet(ctx, key); ok {
		var cached []domain.SearchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			logger.Debug("search cache hit: %q", query)
			return cached, nil
		}
	}

	snap, err := s.engine.catalogReady(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			logger.Debug("search: engine not ready, empty result")
			return []domain.SearchResult{}, nil
		}
		return nil, err
	}

	// Queries go through the same cleaning as item texts, minus stemming:
	// the dense model handles inflection better than a truncated stem.
	normalized := textnorm.Normalize(query, false)
	if normalized == "" {
		normalized = query
	}
	vec, err := s.engine.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	hits, err := snap.index.Search(vec, overFetchFactor*k, searchMinScore)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		results := []domain.SearchResult{}
		if data, err := json.Marshal(results); err == nil {
			s.engine.cacheSet(ctx, key, data)
		}
		return results, nil
	}

	ids := make([]int64, len(hits))
	scores := make(map[int64]float64, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
		scores[hit.ID] = hit.Score
	}

	kept, err := s.engine.catalog.FilterIDs(ctx, ids, filters)
	if err != nil {
		return nil, fmt.Errorf("search: filter results: %w", err)
	}
	if len(kept) > k {
		kept = kept[:k]
	}

	results := make([]domain.SearchResult, len(kept))
	for i, id := range kept {
		score := scores[id]
		results[i] = domain.SearchResult{
			ItemID: id,
			Score:  score,
			Reason: domain.SearchReason(query, score),
		}
	}

	if data, err := json.Marshal(results); err == nil {
		s.engine.cacheSet(ctx, key, data)
	}
	logger.Debug("search: %q k=%d -> %d results (%d pre-filter)", query, k, len(results), len(hits))
	return results, nil
}
