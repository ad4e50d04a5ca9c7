package domain

// Search limits.
const (
	// DefaultSearchK is the default number of search results.
	DefaultSearchK = 20

	// MaxSearchK caps the number of search results per request.
	MaxSearchK = 100
)

// SearchResult is a single semantic search hit against the catalog index.
type SearchResult struct {
	// ItemID is the matched item.
	ItemID int64 `json:"item_id"`

	// Score is the cosine similarity between query and item embedding.
	Score float64 `json:"score"`

	// Reason is a human-readable confidence bucket for the match.
	Reason string `json:"reason"`
}
