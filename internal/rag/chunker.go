// Package rag implements the retrieval side of the assistant: documents
// are split into overlapping word chunks, embedded, and indexed in a
// flat vector index for semantic lookup.
package rag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// Chunking defaults. A 500-word window with 50 words of overlap keeps
// each chunk inside typical embedding context limits while preserving
// continuity across boundaries.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunker splits documents into overlapping word windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window parameters. Overlap must be strictly
// smaller than size or the window would never advance.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: size %d overlap %d: %w",
			size, overlap, domain.ErrInvalidInput)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks a document into word windows. Every chunk carries the
// document metadata plus its position: chunk_index, total_chunks and
// parent_document_id. A document at or under the window size yields a
// single chunk; empty content yields none.
func (c *Chunker) Split(doc domain.KnowledgeDocument) []domain.Chunk {
	words := strings.Fields(doc.Content)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var spans []string
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		spans = append(spans, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}

	chunks := make([]domain.Chunk, len(spans))
	for i, content := range spans {
		meta := make(map[string]string, len(doc.Metadata)+3)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[domain.MetaChunkIndex] = strconv.Itoa(i)
		meta[domain.MetaTotalChunks] = strconv.Itoa(len(spans))
		meta[domain.MetaParentID] = doc.ID

		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s#%d", doc.ID, i),
			DocumentID: doc.ID,
			Content:    content,
			Index:      i,
			Metadata:   meta,
		}
	}
	return chunks
}
