package driving

import (
	"context"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// SearchService serves semantic catalog search with structured filters.
type SearchService interface {
	// Search embeds the query, retrieves up to k matching items above the
	// configured score floor and post-filters them through the catalog.
	//
	// A not-yet-built index yields an empty slice, never an error.
	Search(ctx context.Context, query string, k int, filters domain.SearchFilters) ([]domain.SearchResult, error)
}
