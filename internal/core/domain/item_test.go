package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestSearchFiltersIsZero(t *testing.T) {
	assert.True(t, SearchFilters{}.IsZero())
	assert.False(t, SearchFilters{CategoryIDs: []int64{1}}.IsZero())
	assert.False(t, SearchFilters{MinPrice: fptr(10)}.IsZero())
	assert.False(t, SearchFilters{MaxPrice: fptr(10)}.IsZero())
}

func TestSearchFiltersMatch(t *testing.T) {
	item := Item{ID: 1, CategoryID: 3, Price: 49.90, Active: true}

	tests := []struct {
		name    string
		filters SearchFilters
		want    bool
	}{
		{"empty filters match active item", SearchFilters{}, true},
		{"matching category", SearchFilters{CategoryIDs: []int64{2, 3}}, true},
		{"non-matching category", SearchFilters{CategoryIDs: []int64{7}}, false},
		{"price in range", SearchFilters{MinPrice: fptr(40), MaxPrice: fptr(60)}, true},
		{"price below min", SearchFilters{MinPrice: fptr(50)}, false},
		{"price above max", SearchFilters{MaxPrice: fptr(49)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Match(item))
		})
	}
}

func TestSearchFiltersRejectInactive(t *testing.T) {
	item := Item{ID: 1, CategoryID: 3, Price: 10, Active: false}
	assert.False(t, SearchFilters{}.Match(item))
}
