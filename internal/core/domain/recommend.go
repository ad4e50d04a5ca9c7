package domain

import "fmt"

// Recommendation limits.
const (
	// DefaultRecommendK is the default number of neighbours returned.
	DefaultRecommendK = 10

	// MaxRecommendK caps the number of neighbours per request.
	MaxRecommendK = 50
)

// Recommendation is a single content-based neighbour of a catalog item.
type Recommendation struct {
	// ItemID is the recommended item.
	ItemID int64 `json:"item_id"`

	// Score is the cosine similarity to the source item.
	Score float64 `json:"score"`

	// Reason is a human-readable explanation bucket derived from the score.
	Reason string `json:"reason"`
}

// Score thresholds for explanation buckets. Policy constants, not computed.
const (
	reasonVerySimilar     = 0.8
	reasonSimilarFeatures = 0.6
	reasonSimilarCategory = 0.4
)

// RecommendReason maps a similarity score to an explanation bucket.
func RecommendReason(score float64) string {
	switch {
	case score > reasonVerySimilar:
		return "very similar"
	case score > reasonSimilarFeatures:
		return "similar by category and features"
	case score > reasonSimilarCategory:
		return "similar by category"
	default:
		return "complementary"
	}
}

// SearchReason maps a search score to an explanation bucket referencing
// the original query. Same thresholds as RecommendReason.
func SearchReason(query string, score float64) string {
	switch {
	case score > reasonVerySimilar:
		return fmt.Sprintf("excellent match for %q", query)
	case score > reasonSimilarFeatures:
		return fmt.Sprintf("strong match for %q", query)
	case score > reasonSimilarCategory:
		return fmt.Sprintf("moderate match for %q", query)
	default:
		return fmt.Sprintf("weak match for %q", query)
	}
}
