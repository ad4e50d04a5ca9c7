package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(out, " ")
}

func TestNewChunkerValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)

	doc := domain.KnowledgeDocument{ID: "faq", Content: "politique de retour trente jours"}
	chunks := c.Split(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, doc.Content, chunks[0].Content)
	assert.Equal(t, "0", chunks[0].Metadata[domain.MetaChunkIndex])
	assert.Equal(t, "1", chunks[0].Metadata[domain.MetaTotalChunks])
	assert.Equal(t, "faq", chunks[0].Metadata[domain.MetaParentID])
}

func TestSplitEmptyDocument(t *testing.T) {
	c, err := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	require.NoError(t, err)
	assert.Empty(t, c.Split(domain.KnowledgeDocument{ID: "blank", Content: "   \n  "}))
}

func TestSplitOverlappingWindows(t *testing.T) {
	c, err := NewChunker(10, 3)
	require.NoError(t, err)

	chunks := c.Split(domain.KnowledgeDocument{ID: "doc", Content: words(24)})
	// step 7: windows [0,10) [7,17) [14,24)
	require.Len(t, chunks, 3)

	first := strings.Fields(chunks[0].Content)
	second := strings.Fields(chunks[1].Content)
	assert.Len(t, first, 10)
	assert.Equal(t, first[7:], second[:3]) // shared overlap

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "3", chunk.Metadata[domain.MetaTotalChunks])
		assert.Equal(t, fmt.Sprintf("doc#%d", i), chunk.ID)
	}
}

func TestSplitCarriesDocumentMetadata(t *testing.T) {
	c, err := NewChunker(10, 2)
	require.NoError(t, err)

	doc := domain.KnowledgeDocument{
		ID:       "policy",
		Content:  words(5),
		Metadata: map[string]string{"source": "faq.md"},
	}
	chunks := c.Split(doc)
	require.Len(t, chunks, 1)
	assert.Equal(t, "faq.md", chunks[0].Metadata["source"])

	// Chunk metadata is a copy, not an alias of the document map.
	chunks[0].Metadata["source"] = "changed"
	assert.Equal(t, "faq.md", doc.Metadata["source"])
}

func TestSplitFinalChunkMayBeShort(t *testing.T) {
	c, err := NewChunker(10, 0)
	require.NoError(t, err)

	chunks := c.Split(domain.KnowledgeDocument{ID: "doc", Content: words(13)})
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[1].Content), 3)
}
