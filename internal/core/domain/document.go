package domain

import "time"

// Well-known metadata keys carried by chunks.
const (
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaParentID    = "parent_document_id"
)

// KnowledgeDocument is a source-of-truth document in the knowledge base.
// Documents are ingested whole; chunks are derived artifacts regenerated
// whenever the parent is re-ingested.
type KnowledgeDocument struct {
	// ID is the document identifier.
	ID string `json:"id"`

	// Content is the full document text.
	Content string `json:"content"`

	// Metadata describes the document (type, category, title, version).
	Metadata map[string]string `json:"metadata"`

	// CreatedAt is the ingestion time.
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded, possibly overlapping slice of a parent document.
// It is the unit of retrieval in the RAG index.
type Chunk struct {
	// ID is the chunk identifier.
	ID string `json:"id"`

	// DocumentID references the parent document.
	DocumentID string `json:"document_id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Index is the chunk's position within the parent document.
	Index int `json:"index"`

	// Metadata is the parent metadata plus chunk_index, total_chunks
	// and parent_document_id.
	Metadata map[string]string `json:"metadata"`
}

// ScoredChunk pairs a retrieved chunk with its similarity to the question.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
