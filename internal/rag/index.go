package rag

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
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorindex"
)

// Artifact file names for the knowledge index.
const (
	ChunksFile  = "knowledge_chunks.json"
	VectorsFile = "knowledge_vectors.bin"
)

// embedBatchSize bounds texts per embedding backend call.
const embedBatchSize = 64

// Index is the incremental knowledge retrieval index: chunk records
// keyed by a stable numeric id, alongside a flat vector index over their
// embeddings. Not safe for concurrent mutation; serving code swaps a
// rebuilt index atomically instead of mutating a shared one.
type Index struct {
	embedder driven.EmbeddingService
	chunker  *Chunker
	dim      int

	index  *vectorindex.Index
	chunks map[int64]domain.Chunk
	nextID int64
}

// NewIndex creates an empty knowledge index.
func NewIndex(embedder driven.EmbeddingService, chunker *Chunker, dim int) (*Index, error) {
	vi, err := vectorindex.New(dim)
	if err != nil {
		return nil, err
	}
	return &Index{
		embedder: embedder,
		chunker:  chunker,
		dim:      dim,
		index:    vi,
		chunks:   make(map[int64]domain.Chunk),
		nextID:   1,
	}, nil
}

// Size returns the number of indexed chunks.
func (x *Index) Size() int { return len(x.chunks) }

// AddDocuments chunks, embeds and appends the documents. Documents with
// empty content are skipped. Embedding failures abort the whole batch,
// leaving the index unchanged.
func (x *Index) AddDocuments(ctx context.Context, docs []domain.KnowledgeDocument) (int, error) {
	var pending []domain.Chunk
	for _, doc := range docs {
		pending = append(pending, x.chunker.Split(doc)...)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pending))
	for i, chunk := range pending {
		texts[i] = chunk.Content
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := x.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return 0, fmt.Errorf("knowledge index: embed chunks: %w", err)
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("knowledge index: backend returned %d vectors for %d chunks",
			len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if len(vec) != x.dim {
			return 0, fmt.Errorf("knowledge index: chunk %q dim %d, want %d: %w",
				pending[i].ID, len(vec), x.dim, domain.ErrDimensionMismatch)
		}
	}

	for i, chunk := range pending {
		id := x.nextID
		x.nextID++
		if err := x.index.Add(id, vectors[i]); err != nil {
			return 0, err
		}
		x.chunks[id] = chunk
	}
	logger.Debug("knowledge index: added %d chunks from %d documents", len(pending), len(docs))
	return len(pending), nil
}

// Search embeds the question and returns the top-k chunks by cosine
// similarity, descending. An empty index yields an empty result.
func (x *Index) Search(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	if x.Size() == 0 {
		return nil, nil
	}
	vec, err := x.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("knowledge index: embed question: %w", err)
	}
	hits, err := x.index.Search(vec, k, 0)
	if err != nil {
		return nil, fmt.Errorf("knowledge index: %w", err)
	}

	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := x.chunks[hit.ID]
		if !ok {
			continue
		}
		out = append(out, domain.ScoredChunk{Chunk: chunk, Score: hit.Score})
	}
	return out, nil
}

// chunkRecord is the persisted form of one indexed chunk.
type chunkRecord struct {
	ID    int64        `json:"id"`
	Chunk domain.Chunk `json:"chunk"`
}

// Save persists the chunk store and the vector index to dir, each
// written atomically.
func (x *Index) Save(dir string) error {
	records := make([]chunkRecord, 0, len(x.chunks))
	for _, id := range x.index.IDs() {
		records = append(records, chunkRecord{ID: id, Chunk: x.chunks[id]})
	}
	if err := writeJSONAtomic(filepath.Join(dir, ChunksFile), records); err != nil {
		return fmt.Errorf("knowledge index save: %w", err)
	}
	if err := x.index.Save(filepath.Join(dir, VectorsFile)); err != nil {
		return fmt.Errorf("knowledge index save: %w", err)
	}
	return nil
}

// Load restores a persisted knowledge index. The chunk store and the
// vector index must agree on ids; any divergence means one of the two
// files was replaced independently.
func (x *Index) Load(dir string) error {
	f, err := os.Open(filepath.Join(dir, ChunksFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("knowledge index load: %w", domain.ErrArtifactMissing)
		}
		return fmt.Errorf("knowledge index load: %w", err)
	}
	defer f.Close()

	var records []chunkRecord
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return fmt.Errorf("knowledge index load: chunks: %w", domain.ErrArtifactCorrupt)
	}

	vi, err := vectorindex.Load(filepath.Join(dir, VectorsFile))
	if err != nil {
		return err
	}
	if vi.Dim() != x.dim {
		return fmt.Errorf("knowledge index load: persisted dim %d, configured %d: %w",
			vi.Dim(), x.dim, domain.ErrDimensionMismatch)
	}
	if vi.Size() != len(records) {
		return fmt.Errorf("knowledge index load: %d vectors for %d chunks: %w",
			vi.Size(), len(records), domain.ErrArtifactCorrupt)
	}

	chunks := make(map[int64]domain.Chunk, len(records))
	var maxID int64
	for _, rec := range records {
		if _, dup := chunks[rec.ID]; dup {
			return fmt.Errorf("knowledge index load: duplicate chunk id %d: %w",
				rec.ID, domain.ErrArtifactCorrupt)
		}
		chunks[rec.ID] = rec.Chunk
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}
	for _, id := range vi.IDs() {
		if _, ok := chunks[id]; !ok {
			return fmt.Errorf("knowledge index load: vector id %d has no chunk: %w",
				id, domain.ErrArtifactCorrupt)
		}
	}

	x.index = vi
	x.chunks = chunks
	x.nextID = maxID + 1
	return nil
}

func writeJSONAtomic(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
