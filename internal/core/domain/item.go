package domain

// Item is a catalog item as exposed by the read-only catalog collaborator.
// The engine never writes items back; it only derives text and filters
// search results against these fields.
type Item struct {
	// ID is the catalog identifier.
	ID int64

	// Name is the display title.
	Name string

	// Description is the free-form description text.
	Description string

	// CategoryID references the item's category.
	CategoryID int64

	// CategoryName is the denormalised category display name.
	CategoryName string

	// Price is the current unit price.
	Price float64

	// Stock is the available stock count.
	Stock int

	// Active indicates whether the item is currently sellable.
	Active bool
}

// SearchFilters narrows semantic search results by structured predicates.
// Zero-value fields are ignored.
type SearchFilters struct {
	// CategoryIDs restricts results to the given categories.
	CategoryIDs []int64

	// MinPrice is the inclusive lower price bound (nil = unbounded).
	MinPrice *float64

	// MaxPrice is the inclusive upper price bound (nil = unbounded).
	MaxPrice *float64
}

// IsZero reports whether no filter predicate is set.
func (f SearchFilters) IsZero() bool {
	return len(f.CategoryIDs) == 0 && f.MinPrice == nil && f.MaxPrice == nil
}

// Match reports whether the item satisfies every set predicate.
// Inactive items never match; absence from the catalog is handled by the caller.
func (f SearchFilters) Match(item Item) bool {
	if !item.Active {
		return false
	}
	if len(f.CategoryIDs) > 0 {
		found := false
		for _, id := range f.CategoryIDs {
			if id == item.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinPrice != nil && item.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && item.Price > *f.MaxPrice {
		return false
	}
	return true
}
