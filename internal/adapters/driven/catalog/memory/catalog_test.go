package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

func seededCatalog() *Catalog {
	return New(
		domain.Item{ID: 1, Name: "Chaussures running", CategoryID: 1, Price: 89, Active: true},
		domain.Item{ID: 2, Name: "Pneu hiver", CategoryID: 2, Price: 75, Active: true},
		domain.Item{ID: 3, Name: "Ancien modèle", CategoryID: 1, Price: 40, Active: false},
	)
}

func TestListActiveSortsAndExcludesInactive(t *testing.T) {
	c := seededCatalog()

	items, err := c.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(2), items[1].ID)
}

func TestGetUnknownItem(t *testing.T) {
	c := seededCatalog()

	_, err := c.Get(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFilterIDsPreservesOrder(t *testing.T) {
	c := seededCatalog()

	kept, err := c.FilterIDs(context.Background(), []int64{2, 99, 1, 3}, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, kept, "unknown and inactive ids are dropped")
}

func TestPutAndDelete(t *testing.T) {
	c := New()
	c.Put(domain.Item{ID: 7, Name: "Gants vélo", Active: true})

	item, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Gants vélo", item.Name)

	c.Delete(7)
	_, err = c.Get(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
