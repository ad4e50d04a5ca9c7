package vectorize

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// stubEmbedder is a deterministic bag-of-words embedder: each token maps
// to a fixed component, so shared vocabulary means vector overlap.
type stubEmbedder struct {
	dim int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return bagVector(text, s.dim), nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagVector(t, s.dim)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return s.dim }
func (s *stubEmbedder) ModelName() string            { return "stub-bag" }
func (s *stubEmbedder) Ping(_ context.Context) error { return nil }
func (s *stubEmbedder) Close() error                 { return nil }

func bagVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for _, tok := range strings.Fields(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec
}

func testItems() []domain.Item {
	return []domain.Item{
		{ID: 1, Name: "Chaussures running", CategoryName: "Sport", Description: "Chaussures légères", Active: true},
		{ID: 2, Name: "Chaussures trail", CategoryName: "Sport", Description: "Chaussures robustes", Active: true},
		{ID: 3, Name: "Pneu voiture", CategoryName: "Auto", Description: "Pneu toutes saisons", Active: true},
		{ID: 4, Name: "Produit retiré", CategoryName: "Auto", Description: "Ancien", Active: false},
	}
}

func TestVectorizerFitEmptyItems(t *testing.T) {
	v := NewVectorizer(&stubEmbedder{dim: 16}, 16)
	err := v.Fit(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestVectorizerSkipsInactiveItems(t *testing.T) {
	v := NewVectorizer(&stubEmbedder{dim: 16}, 16)
	matrix, ids, err := v.Embed(context.Background(), testItems())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, 3, matrix.Rows())
}

// shortBatchEmbedder drops the last vector of every batch, violating the
// one-vector-per-text contract.
type shortBatchEmbedder struct {
	stubEmbedder
}

func (s *shortBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.stubEmbedder.EmbedBatch(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[:len(out)-1], nil
}

func TestVectorizerRejectsShortEmbeddingBatch(t *testing.T) {
	v := NewVectorizer(&shortBatchEmbedder{stubEmbedder{dim: 16}}, 16)
	_, _, err := v.Embed(context.Background(), testItems())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 vectors for 3 texts")
}

func TestVectorizerDimensionMismatch(t *testing.T) {
	// Backend produces 16-dim vectors but the engine is configured for 32.
	v := NewVectorizer(&stubEmbedder{dim: 16}, 32)
	_, _, err := v.Embed(context.Background(), testItems())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorizerSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	v := NewVectorizer(&stubEmbedder{dim: 16}, 16)
	items := testItems()
	require.NoError(t, v.Fit(items))
	matrix, ids, err := v.Embed(context.Background(), items)
	require.NoError(t, err)
	require.NoError(t, v.Save(dir))

	restored := NewVectorizer(&stubEmbedder{dim: 16}, 16)
	require.NoError(t, restored.Load(dir))

	assert.Equal(t, ids, restored.IDs())
	require.Equal(t, matrix.Rows(), restored.Matrix().Rows())
	for i := 0; i < matrix.Rows(); i++ {
		// Exact score equality is required for the save/load round-trip.
		assert.Equal(t, matrix.Row(i), restored.Matrix().Row(i), "row %d", i)
	}

	want, err := v.TransformItem(items[0])
	require.NoError(t, err)
	got, err := restored.TransformItem(items[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVectorizerLoadMissing(t *testing.T) {
	v := NewVectorizer(&stubEmbedder{dim: 16}, 16)
	err := v.Load(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestVectorizerLoadIDMismatch(t *testing.T) {
	dir := t.TempDir()

	v := NewVectorizer(&stubEmbedder{dim: 16}, 16)
	items := testItems()
	require.NoError(t, v.Fit(items))
	_, _, err := v.Embed(context.Background(), items)
	require.NoError(t, err)
	require.NoError(t, v.Save(dir))

	// Drop one id: cardinality no longer matches the matrix.
	idPath := filepath.Join(dir, IDListFile)
	data, err := json.Marshal([]int64{1, 2})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(idPath, data, 0o600))

	err = NewVectorizer(&stubEmbedder{dim: 16}, 16).Load(dir)
	assert.ErrorIs(t, err, domain.ErrArtifactCorrupt)
}

func TestLoadIDsRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), IDListFile)
	require.NoError(t, os.WriteFile(path, []byte("[1,2,2]"), 0o600))

	_, err := LoadIDs(path)
	assert.ErrorIs(t, err, domain.ErrArtifactCorrupt)
}

func TestVectorizerSaveBeforeEmbed(t *testing.T) {
	v := NewVectorizer(&stubEmbedder{dim: 16}, 16)
	assert.ErrorIs(t, v.Save(t.TempDir()), domain.ErrNotReady)
}
