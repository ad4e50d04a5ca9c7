package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorize"
)

// testRanker covers the classic near-duplicate scenario: items 1, 2 and
// 3 share a direction (two of them exactly), item 4 points elsewhere but
// overlaps, item 5 is orthogonal.
func testRanker(t *testing.T) *Ranker {
	t.Helper()
	matrix, err := vectorize.NewEmbeddingMatrix([][]float32{
		{1, 0, 0},     // id 1
		{1, 0, 0},     // id 2, duplicate of 1
		{1, 0, 0},     // id 3, duplicate of 1
		{0.6, 0.8, 0}, // id 4, cos 0.6 with 1..3
		{0, 0, 1},     // id 5, orthogonal
	})
	require.NoError(t, err)
	r, err := NewRanker(matrix, []int64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	return r
}

func TestNewRankerRejectsMisalignedIDs(t *testing.T) {
	matrix, err := vectorize.NewEmbeddingMatrix([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	_, err = NewRanker(matrix, []int64{1, 2, 3})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNeighborsOrderingAndTieBreak(t *testing.T) {
	r := testRanker(t)

	got := r.Neighbors(1, 10, true, DefaultMinScore)
	require.Len(t, got, 3) // id 5 filtered by min score

	// Ids 2 and 3 tie at cosine 1.0: ascending id breaks the tie.
	assert.Equal(t, int64(2), got[0].ItemID)
	assert.Equal(t, int64(3), got[1].ItemID)
	assert.Equal(t, int64(4), got[2].ItemID)

	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, "very similar", got[0].Reason)
	assert.InDelta(t, 0.6, got[2].Score, 1e-6)
}

func TestNeighborsIncludesSelfWhenAsked(t *testing.T) {
	r := testRanker(t)

	got := r.Neighbors(5, 10, false, DefaultMinScore)
	require.NotEmpty(t, got)
	assert.Equal(t, int64(5), got[0].ItemID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
}

func TestNeighborsUnknownID(t *testing.T) {
	r := testRanker(t)
	assert.Empty(t, r.Neighbors(999, 10, true, DefaultMinScore))
}

func TestNeighborsDefaultK(t *testing.T) {
	r := testRanker(t)
	got := r.Neighbors(1, 0, true, 0)
	assert.Len(t, got, 4)
}

func TestDiverseNeighborsPromotesDistinctItems(t *testing.T) {
	r := testRanker(t)

	// Plain ranking picks the two duplicates first.
	plain := r.Neighbors(1, 2, true, DefaultMinScore)
	require.Equal(t, []int64{2, 3}, []int64{plain[0].ItemID, plain[1].ItemID})

	// With a strong diversity weight the second pick jumps to item 4,
	// which is less similar to the query but not a duplicate of item 2.
	diverse := r.DiverseNeighbors(1, 2, 0.7)
	require.Len(t, diverse, 2)
	assert.Equal(t, int64(2), diverse[0].ItemID)
	assert.Equal(t, int64(4), diverse[1].ItemID)
}

func TestDiverseNeighborsSameCardinalityAsPlain(t *testing.T) {
	r := testRanker(t)

	for _, k := range []int{1, 2, 3} {
		plain := r.Neighbors(1, k, true, DefaultMinScore)
		diverse := r.DiverseNeighbors(1, k, DefaultLambda)
		assert.Len(t, diverse, len(plain), "k=%d", k)

		seen := make(map[int64]bool)
		for _, rec := range diverse {
			assert.NotEqual(t, int64(1), rec.ItemID)
			assert.False(t, seen[rec.ItemID], "duplicate id %d", rec.ItemID)
			seen[rec.ItemID] = true
		}
	}
}

func TestDiverseNeighborsUnknownID(t *testing.T) {
	r := testRanker(t)
	assert.Empty(t, r.DiverseNeighbors(999, 5, DefaultLambda))
}

func TestBatchNeighbors(t *testing.T) {
	r := testRanker(t)

	got := r.BatchNeighbors([]int64{1, 5}, 2)
	require.Len(t, got, 2)
	assert.Len(t, got[1], 2)
	assert.Empty(t, got[5]) // orthogonal to everything
}
