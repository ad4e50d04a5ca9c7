package driving

import (
	"context"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// RecommendService serves content-based item recommendations.
type RecommendService interface {
	// Recommend returns up to k neighbours of the given item, ranked by
	// similarity. With diverse set, results are re-ranked with MMR.
	//
	// An unknown item id or a not-yet-built index yields an empty slice,
	// never an error: absence of data is expected after catalog edits.
	Recommend(ctx context.Context, itemID int64, k int, diverse bool) ([]domain.Recommendation, error)
}
