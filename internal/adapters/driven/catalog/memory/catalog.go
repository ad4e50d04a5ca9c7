// Package memory provides an in-memory CatalogStore for tests and for
// embedding the engine where no catalog database exists.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
)

// Ensure Catalog implements the interface.
var _ driven.CatalogStore = (*Catalog)(nil)

// Catalog holds items in memory. Safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	items map[int64]domain.Item
}

// New creates a catalog pre-populated with the given items.
func New(items ...domain.Item) *Catalog {
	c := &Catalog{items: make(map[int64]domain.Item, len(items))}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

// Put inserts or replaces an item.
func (c *Catalog) Put(item domain.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

// Delete removes an item.
func (c *Catalog) Delete(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// ListActive returns every active item in ascending id order.
func (c *Catalog) ListActive(_ context.Context) ([]domain.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var items []domain.Item
	for _, item := range c.items {
		if item.Active {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Get retrieves a single item by id.
func (c *Catalog) Get(_ context.Context, id int64) (*domain.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

// FilterIDs narrows ids to those satisfying the filters, preserving
// input order. Unknown ids are dropped.
func (c *Catalog) FilterIDs(_ context.Context, ids []int64, filters domain.SearchFilters) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		item, ok := c.items[id]
		if !ok {
			continue
		}
		if filters.Match(item) {
			out = append(out, id)
		}
	}
	return out, nil
}
