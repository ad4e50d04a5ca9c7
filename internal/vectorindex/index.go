// Package vectorindex provides a flat inner-product index over
// L2-normalized vectors. Exact brute-force search: every query scans all
// rows, which is the right trade-off at catalog scale and keeps recall
// at 100%.
package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorize"
)

const (
	indexMagic   = "SMVI"
	indexVersion = uint32(1)
)

// Result is a single index hit.
type Result struct {
	ID    int64
	Score float64
}

// Index is a flat inner-product index. Vectors are L2-normalized at
// insertion so the inner product equals cosine similarity. The index is
// immutable after Build/Load except through Add; callers that share an
// index across goroutines must replace it wholesale instead of mutating.
type Index struct {
	dim     int
	vectors [][]float32
	ids     []int64
	idToRow map[int64]int
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector index: dimension %d: %w", dim, domain.ErrInvalidInput)
	}
	return &Index{dim: dim, idToRow: make(map[int64]int)}, nil
}

// Build creates an index from an embedding matrix and its aligned ids.
// Row data is copied and normalized; the source matrix is not modified.
func Build(matrix *vectorize.EmbeddingMatrix, ids []int64) (*Index, error) {
	if matrix == nil || matrix.Rows() != len(ids) {
		return nil, fmt.Errorf("vector index build: %d ids for matrix: %w",
			len(ids), domain.ErrInvalidInput)
	}
	idx, err := New(matrix.Dim())
	if err != nil {
		return nil, err
	}
	for row := 0; row < matrix.Rows(); row++ {
		if err := idx.Add(ids[row], matrix.Row(row)); err != nil {
			return nil, err
		}
	}
	logger.Debug("vector index built: %d vectors (dim %d)", idx.Size(), idx.dim)
	return idx, nil
}

// Add inserts a vector under id, replacing any existing entry for the
// same id. The vector is copied and L2-normalized.
func (x *Index) Add(id int64, vec []float32) error {
	if len(vec) != x.dim {
		return fmt.Errorf("vector index add id %d: dim %d, want %d: %w",
			id, len(vec), x.dim, domain.ErrDimensionMismatch)
	}
	normalized := normalize(vec)
	if row, ok := x.idToRow[id]; ok {
		x.vectors[row] = normalized
		return nil
	}
	x.idToRow[id] = len(x.ids)
	x.ids = append(x.ids, id)
	x.vectors = append(x.vectors, normalized)
	return nil
}

// Size returns the number of indexed vectors.
func (x *Index) Size() int { return len(x.ids) }

// Dim returns the vector dimension.
func (x *Index) Dim() int { return x.dim }

// IDs returns the indexed ids in insertion order.
func (x *Index) IDs() []int64 { return x.ids }

// Search returns up to k entries with the highest inner product against
// the query, skipping scores below minScore. The query is normalized
// first, so scores are cosine similarities in [-1, 1]. Ties are broken
// by ascending id.
func (x *Index) Search(vec []float32, k int, minScore float64) ([]Result, error) {
	if len(vec) != x.dim {
		return nil, fmt.Errorf("vector index search: dim %d, want %d: %w",
			len(vec), x.dim, domain.ErrDimensionMismatch)
	}
	if k <= 0 || x.Size() == 0 {
		return nil, nil
	}
	query := normalize(vec)

	results := make([]Result, 0, x.Size())
	for row, stored := range x.vectors {
		var dot float64
		for d := 0; d < x.dim; d++ {
			dot += float64(query[d]) * float64(stored[d])
		}
		if dot < minScore {
			continue
		}
		results = append(results, Result{ID: x.ids[row], Score: dot})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Save writes the index to a single binary file via a temp file and an
// atomic rename.
func (x *Index) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(indexMagic); err != nil {
		tmp.Close()
		return fmt.Errorf("save index: %w", err)
	}
	header := []uint32{indexVersion, uint32(x.dim), uint32(len(x.ids))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			tmp.Close()
			return fmt.Errorf("save index: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, x.ids); err != nil {
		tmp.Close()
		return fmt.Errorf("save index: %w", err)
	}
	for _, vec := range x.vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			tmp.Close()
			return fmt.Errorf("save index: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("save index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// Load reads an index persisted by Save. A missing file maps to
// domain.ErrArtifactMissing, any malformed content to
// domain.ErrArtifactCorrupt.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load index %s: %w", path, domain.ErrArtifactMissing)
		}
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return nil, fmt.Errorf("load index %s: bad magic: %w", path, domain.ErrArtifactCorrupt)
	}
	var version, dim, count uint32
	for _, dst := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("load index %s: truncated header: %w", path, domain.ErrArtifactCorrupt)
		}
	}
	if version != indexVersion {
		return nil, fmt.Errorf("load index %s: unsupported version %d: %w",
			path, version, domain.ErrArtifactCorrupt)
	}
	if dim == 0 {
		return nil, fmt.Errorf("load index %s: zero dimension: %w", path, domain.ErrArtifactCorrupt)
	}

	idx, err := New(int(dim))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, count)
	if err := binary.Read(r, binary.LittleEndian, ids); err != nil {
		return nil, fmt.Errorf("load index %s: truncated ids: %w", path, domain.ErrArtifactCorrupt)
	}
	for _, id := range ids {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("load index %s: truncated vectors: %w", path, domain.ErrArtifactCorrupt)
		}
		if _, dup := idx.idToRow[id]; dup {
			return nil, fmt.Errorf("load index %s: duplicate id %d: %w", path, id, domain.ErrArtifactCorrupt)
		}
		idx.idToRow[id] = len(idx.ids)
		idx.ids = append(idx.ids, id)
		idx.vectors = append(idx.vectors, vec)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("load index %s: trailing data: %w", path, domain.ErrArtifactCorrupt)
	}
	return idx, nil
}

func normalize(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i := range out {
		out[i] /= norm
	}
	return out
}
