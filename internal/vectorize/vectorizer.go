// Package vectorize turns catalog items into vector representations:
// a sparse TF-IDF lexical model and a dense embedding matrix produced by
// the configured embedding backend. Both are persisted to the artifact
// directory and restored on load.
package vectorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
	"github.com/smartmarket-labs/retrieval-engine/internal/textnorm"
)

// Artifact file names within the artifact directory.
const (
	TFIDFModelFile = "tfidf_model.gob"
	EmbeddingsFile = "item_embeddings.bin"
	IDListFile     = "item_embeddings.ids.json"
)

// embedBatchSize bounds the number of texts sent to the backend per call.
const embedBatchSize = 64

// Vectorizer fits the lexical model and produces the dense embedding
// matrix for a batch of catalog items.
type Vectorizer struct {
	embedder driven.EmbeddingService
	dim      int

	tfidf  *TFIDF
	matrix *EmbeddingMatrix
	ids    []int64
	texts  []string
}

// NewVectorizer creates a vectorizer for the given embedding backend.
// dim is the configured model dimension; embeddings of any other size are
// rejected rather than truncated or padded.
func NewVectorizer(embedder driven.EmbeddingService, dim int) *Vectorizer {
	return &Vectorizer{
		embedder: embedder,
		dim:      dim,
		tfidf:    NewTFIDF(),
	}
}

// prepare derives the id list and normalized composite texts from the
// active items, preserving input order.
func (v *Vectorizer) prepare(items []domain.Item) {
	v.ids = v.ids[:0]
	v.texts = v.texts[:0]
	for _, item := range items {
		if !item.Active {
			continue
		}
		v.ids = append(v.ids, item.ID)
		v.texts = append(v.texts, textnorm.ItemText(item))
	}
}

// Fit trains the TF-IDF model over the normalized item texts.
// Fails with domain.ErrEmptyCorpus when no active item is given.
func (v *Vectorizer) Fit(items []domain.Item) error {
	v.prepare(items)
	if len(v.texts) == 0 {
		return fmt.Errorf("vectorizer fit: %w", domain.ErrEmptyCorpus)
	}
	fresh := NewTFIDF()
	if err := fresh.Fit(v.texts); err != nil {
		return fmt.Errorf("vectorizer fit: %w", err)
	}
	v.tfidf = fresh
	logger.Debug("TF-IDF fitted: %d items, %d features", len(v.texts), fresh.Dimension())
	return nil
}

// Embed maps the items to dense vectors via the embedding backend.
// Rows correspond 1:1 to the input items, in input order. The resulting
// matrix and id list are retained for Save.
func (v *Vectorizer) Embed(ctx context.Context, items []domain.Item) (*EmbeddingMatrix, []int64, error) {
	v.prepare(items)
	if len(v.texts) == 0 {
		return nil, nil, fmt.Errorf("vectorizer embed: %w", domain.ErrEmptyCorpus)
	}

	vectors := make([][]float32, 0, len(v.texts))
	for start := 0; start < len(v.texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(v.texts) {
			end = len(v.texts)
		}
		batch, err := v.embedder.EmbedBatch(ctx, v.texts[start:end])
		if err != nil {
			return nil, nil, fmt.Errorf("vectorizer embed: %w", err)
		}
		vectors = append(vectors, batch...)
	}
	// The port promises one vector per text; a misbehaving backend must
	// fail the build, not panic it.
	if len(vectors) != len(v.texts) {
		return nil, nil, fmt.Errorf("vectorizer embed: backend returned %d vectors for %d texts",
			len(vectors), len(v.texts))
	}

	for i, vec := range vectors {
		if len(vec) != v.dim {
			return nil, nil, fmt.Errorf("vectorizer embed: item %d has dim %d, want %d: %w",
				v.ids[i], len(vec), v.dim, domain.ErrDimensionMismatch)
		}
	}

	matrix, err := NewEmbeddingMatrix(vectors)
	if err != nil {
		return nil, nil, fmt.Errorf("vectorizer embed: %w", err)
	}
	v.matrix = matrix
	ids := make([]int64, len(v.ids))
	copy(ids, v.ids)
	logger.Debug("embedded %d items (dim %d)", matrix.Rows(), matrix.Dim())
	return matrix, ids, nil
}

// EmbedItem produces the dense embedding for a single item.
func (v *Vectorizer) EmbedItem(ctx context.Context, item domain.Item) ([]float32, error) {
	vec, err := v.embedder.Embed(ctx, textnorm.ItemText(item))
	if err != nil {
		return nil, fmt.Errorf("embed item %d: %w", item.ID, err)
	}
	if len(vec) != v.dim {
		return nil, fmt.Errorf("embed item %d: dim %d, want %d: %w",
			item.ID, len(vec), v.dim, domain.ErrDimensionMismatch)
	}
	return vec, nil
}

// TransformItem computes the TF-IDF vector for a single item.
func (v *Vectorizer) TransformItem(item domain.Item) ([]float64, error) {
	return v.tfidf.Transform(textnorm.ItemText(item))
}

// TFIDF exposes the fitted lexical model.
func (v *Vectorizer) TFIDF() *TFIDF { return v.tfidf }

// Matrix returns the embedding matrix from the last Embed or Load, nil
// before either.
func (v *Vectorizer) Matrix() *EmbeddingMatrix { return v.matrix }

// IDs returns the id list aligned with Matrix rows.
func (v *Vectorizer) IDs() []int64 { return v.ids }

// Save persists the lexical model, embedding matrix and id list to dir.
func (v *Vectorizer) Save(dir string) error {
	if v.matrix == nil || !v.tfidf.Fitted() {
		return fmt.Errorf("vectorizer save: %w", domain.ErrNotReady)
	}
	if err := v.tfidf.Save(filepath.Join(dir, TFIDFModelFile)); err != nil {
		return err
	}
	if err := v.matrix.Save(filepath.Join(dir, EmbeddingsFile)); err != nil {
		return err
	}
	if err := saveIDs(filepath.Join(dir, IDListFile), v.ids); err != nil {
		return err
	}
	return nil
}

// Load restores the state persisted by Save. Fails with
// domain.ErrArtifactMissing when no prior save exists, and with
// domain.ErrArtifactCorrupt when the matrix and id list disagree.
func (v *Vectorizer) Load(dir string) error {
	tfidf, err := LoadTFIDF(filepath.Join(dir, TFIDFModelFile))
	if err != nil {
		return err
	}
	matrix, err := LoadEmbeddingMatrix(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		return err
	}
	ids, err := LoadIDs(filepath.Join(dir, IDListFile))
	if err != nil {
		return err
	}
	if matrix.Rows() != len(ids) {
		return fmt.Errorf("vectorizer load: %d embeddings for %d ids: %w",
			matrix.Rows(), len(ids), domain.ErrArtifactCorrupt)
	}
	if matrix.Dim() != v.dim {
		return fmt.Errorf("vectorizer load: persisted dim %d, configured %d: %w",
			matrix.Dim(), v.dim, domain.ErrDimensionMismatch)
	}
	v.tfidf = tfidf
	v.matrix = matrix
	v.ids = ids
	return nil
}

func saveIDs(path string, ids []int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save ids: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(ids); err != nil {
		tmp.Close()
		return fmt.Errorf("save ids: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save ids: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save ids: %w", err)
	}
	return nil
}

// LoadIDs reads an id list persisted alongside an embedding matrix.
func LoadIDs(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load ids %s: %w", path, domain.ErrArtifactMissing)
		}
		return nil, fmt.Errorf("load ids %s: %w", path, err)
	}
	defer f.Close()

	var ids []int64
	if err := json.NewDecoder(f).Decode(&ids); err != nil {
		return nil, fmt.Errorf("load ids %s: %w", path, domain.ErrArtifactCorrupt)
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("load ids %s: duplicate id %d: %w", path, id, domain.ErrArtifactCorrupt)
		}
		seen[id] = struct{}{}
	}
	return ids, nil
}
