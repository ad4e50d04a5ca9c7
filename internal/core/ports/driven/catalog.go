package driven

import (
	"context"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// CatalogStore provides read-only access to the product catalog.
// The engine never writes through this port; the relational catalog is
// owned by the web application.
type CatalogStore interface {
	// ListActive returns every active item, in stable id order.
	ListActive(ctx context.Context) ([]domain.Item, error)

	// Get retrieves a single item by id.
	// Returns domain.ErrNotFound if the item does not exist.
	Get(ctx context.Context, id int64) (*domain.Item, error)

	// FilterIDs narrows the given ids to those whose item satisfies the
	// filters, preserving input order. Unknown ids are dropped silently:
	// the index may briefly reference items deleted since the last rebuild.
	FilterIDs(ctx context.Context, ids []int64, filters domain.SearchFilters) ([]int64, error)
}
