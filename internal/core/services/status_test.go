package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBeforeFirstRebuild(t *testing.T) {
	env := newTestEnv(t)
	svc := NewStatusService(env.engine)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.RecommendReady)
	assert.False(t, status.SearchReady)
	assert.False(t, status.AskReady)
	assert.Equal(t, "stub-bag", status.EmbeddingModel)
	assert.True(t, status.EmbeddingOnline)
	assert.Equal(t, "connected", status.Cache.Status)
	assert.True(t, status.Validation.Valid, "empty manifest is valid")
}

func TestStatusAfterRebuildAndIngest(t *testing.T) {
	env := newTestEnv(t)
	env.rebuildCatalog(t)
	ingestDocs(t, NewAssistantService(env.engine), knowledgeDocs())
	svc := NewStatusService(env.engine)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.RecommendReady)
	assert.True(t, status.SearchReady)
	assert.True(t, status.AskReady)
	assert.Contains(t, status.Manifest.Models, "tfidf")
	assert.Contains(t, status.Manifest.Indexes, "items")
	assert.Contains(t, status.Manifest.Indexes, "knowledge-vectors")
	assert.True(t, status.Validation.Valid)
	assert.Positive(t, status.Validation.TotalSize)
}

func TestStatusAskNotReadyOnEmptyKnowledgeBase(t *testing.T) {
	env := newTestEnv(t)
	env.rebuildCatalog(t)
	svc := NewStatusService(env.engine)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.RecommendReady)
	assert.False(t, status.AskReady, "an empty knowledge index answers nothing")
}

func TestStatusWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	env.engine.cache = nil
	svc := NewStatusService(env.engine)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disconnected", status.Cache.Status)
	assert.Equal(t, -1, status.Cache.Entries)
}
