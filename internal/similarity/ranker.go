// Package similarity computes pairwise cosine similarity over the loaded
// embedding matrix and produces top-k neighbour lists, optionally
// re-ranked for diversity with Maximal Marginal Relevance.
//
// The full pairwise matrix is O(N²) in the catalog size. That is
// acceptable because it is computed at load time, not per query, for
// catalogs up to low tens of thousands of items; larger catalogs should
// use the vector index instead.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorize"
)

// Defaults for neighbour queries.
const (
	// DefaultMinScore filters out noise-level similarities.
	DefaultMinScore = 0.1

	// DefaultLambda is the diversity weight for MMR re-ranking
	// (0 = pure relevance, 1 = pure diversity).
	DefaultLambda = 0.3

	// candidateFactor is how many times k candidates MMR draws from.
	candidateFactor = 3
)

// Ranker serves neighbour queries over an immutable embedding matrix.
// The pairwise similarity matrix is computed lazily on first use and
// cached for the ranker's lifetime; rankers are replaced wholesale on
// rebuild, never mutated.
type Ranker struct {
	matrix  *vectorize.EmbeddingMatrix
	ids     []int64
	idToRow map[int64]int

	simOnce sync.Once
	sim     []float64 // n×n row-major cosine similarity
}

// NewRanker creates a ranker over the matrix and its aligned id list.
func NewRanker(matrix *vectorize.EmbeddingMatrix, ids []int64) (*Ranker, error) {
	if matrix == nil || matrix.Rows() != len(ids) {
		return nil, fmt.Errorf("ranker: %d ids for %d embeddings: %w",
			len(ids), rowCount(matrix), domain.ErrInvalidInput)
	}
	idToRow := make(map[int64]int, len(ids))
	for row, id := range ids {
		idToRow[id] = row
	}
	return &Ranker{matrix: matrix, ids: ids, idToRow: idToRow}, nil
}

func rowCount(m *vectorize.EmbeddingMatrix) int {
	if m == nil {
		return 0
	}
	return m.Rows()
}

// Size returns the number of items the ranker covers.
func (r *Ranker) Size() int { return len(r.ids) }

// Neighbors returns up to k items most similar to itemID, sorted by
// descending score with ties broken by ascending id. An unknown id
// yields an empty result: absence of data is expected after catalog
// edits, not an error.
func (r *Ranker) Neighbors(itemID int64, k int, excludeSelf bool, minScore float64) []domain.Recommendation {
	row, ok := r.idToRow[itemID]
	if !ok {
		return nil
	}
	if k <= 0 {
		k = domain.DefaultRecommendK
	}
	if k > domain.MaxRecommendK {
		k = domain.MaxRecommendK
	}

	sim := r.simMatrix()
	n := len(r.ids)

	type scored struct {
		row   int
		score float64
	}
	candidates := make([]scored, 0, n)
	for j := 0; j < n; j++ {
		if excludeSelf && j == row {
			continue
		}
		score := sim[row*n+j]
		if score < minScore {
			continue
		}
		candidates = append(candidates, scored{row: j, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return r.ids[candidates[i].row] < r.ids[candidates[j].row]
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]domain.Recommendation, len(candidates))
	for i, c := range candidates {
		out[i] = domain.Recommendation{
			ItemID: r.ids[c.row],
			Score:  c.score,
			Reason: domain.RecommendReason(c.score),
		}
	}
	return out
}

// DiverseNeighbors re-ranks neighbours with Maximal Marginal Relevance:
// a pool of 3k candidates is drawn by pure similarity, the most similar
// is selected first, and every subsequent pick maximizes
//
//	(1-λ)·sim(query,c) + λ·min over selected (1 - sim(c,s))
//
// The greedy trade-off is monotone, not globally optimal.
func (r *Ranker) DiverseNeighbors(itemID int64, k int, lambda float64) []domain.Recommendation {
	if k <= 0 {
		k = domain.DefaultRecommendK
	}
	if k > domain.MaxRecommendK {
		k = domain.MaxRecommendK
	}
	if lambda < 0 || lambda > 1 {
		lambda = DefaultLambda
	}

	candidates := r.Neighbors(itemID, candidateFactor*k, true, DefaultMinScore)
	if len(candidates) == 0 {
		return nil
	}

	selected := make([]domain.Recommendation, 0, k)
	selected = append(selected, candidates[0])
	remaining := candidates[1:]

	sim := r.simMatrix()
	n := len(r.ids)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, cand := range remaining {
			candRow := r.idToRow[cand.ItemID]
			diversity := math.Inf(1)
			for _, sel := range selected {
				selRow := r.idToRow[sel.ItemID]
				if d := 1 - sim[candRow*n+selRow]; d < diversity {
					diversity = d
				}
			}
			combined := (1-lambda)*cand.Score + lambda*diversity
			if combined > bestScore {
				bestScore = combined
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// BatchNeighbors computes plain neighbour lists for several items at once.
func (r *Ranker) BatchNeighbors(itemIDs []int64, k int) map[int64][]domain.Recommendation {
	out := make(map[int64][]domain.Recommendation, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = r.Neighbors(id, k, true, DefaultMinScore)
	}
	return out
}

// simMatrix computes the full pairwise cosine matrix once.
func (r *Ranker) simMatrix() []float64 {
	r.simOnce.Do(func() {
		n := r.matrix.Rows()
		dim := r.matrix.Dim()

		norms := make([]float64, n)
		for i := 0; i < n; i++ {
			row := r.matrix.Row(i)
			var sum float64
			for d := 0; d < dim; d++ {
				sum += float64(row[d]) * float64(row[d])
			}
			norms[i] = math.Sqrt(sum)
		}

		sim := make([]float64, n*n)
		for i := 0; i < n; i++ {
			rowI := r.matrix.Row(i)
			sim[i*n+i] = 1
			for j := i + 1; j < n; j++ {
				rowJ := r.matrix.Row(j)
				var dot float64
				for d := 0; d < dim; d++ {
					dot += float64(rowI[d]) * float64(rowJ[d])
				}
				var cos float64
				if norms[i] > 0 && norms[j] > 0 {
					cos = dot / (norms[i] * norms[j])
				}
				sim[i*n+j] = cos
				sim[j*n+i] = cos
			}
		}
		r.sim = sim
	})
	return r.sim
}
