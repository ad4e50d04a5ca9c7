package vectorize

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

var corpus = []string{
	"chaussur running rout",
	"chaussur trail rout montagn",
	"pneu voitur rout running",
	"veste pluie montagn",
}

func TestTFIDFFitEmptyCorpus(t *testing.T) {
	err := NewTFIDF().Fit(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestTFIDFTransformBeforeFit(t *testing.T) {
	_, err := NewTFIDF().Transform("chaussur")
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestTFIDFFitAndTransform(t *testing.T) {
	model := NewTFIDF()
	require.NoError(t, model.Fit(corpus))
	require.True(t, model.Fitted())
	require.Positive(t, model.Dimension())

	vec, err := model.Transform("chaussur running")
	require.NoError(t, err)
	require.Len(t, vec, model.Dimension())

	// L2 normalized.
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestTFIDFUnknownTermsYieldZeroVector(t *testing.T) {
	model := NewTFIDF()
	require.NoError(t, model.Fit(corpus))

	vec, err := model.Transform("zzz unknown")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestTFIDFRareTermScoresHigher(t *testing.T) {
	model := NewTFIDF()
	require.NoError(t, model.Fit(corpus))

	// "rout" appears in two documents, "running" in one; within the same
	// query the rarer term must dominate.
	vec, err := model.Transform("running rout")
	require.NoError(t, err)

	var running, rout float64
	for term, idx := range model.vocab {
		switch term {
		case "running":
			running = vec[idx]
		case "rout":
			rout = vec[idx]
		}
	}
	assert.Greater(t, running, rout)
}

func TestTFIDFSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, TFIDFModelFile)

	model := NewTFIDF()
	require.NoError(t, model.Fit(corpus))
	require.NoError(t, model.Save(path))

	loaded, err := LoadTFIDF(path)
	require.NoError(t, err)
	assert.Equal(t, model.Dimension(), loaded.Dimension())

	want, err := model.Transform("chaussur rout")
	require.NoError(t, err)
	got, err := loaded.Transform("chaussur rout")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadTFIDFMissing(t *testing.T) {
	_, err := LoadTFIDF(filepath.Join(t.TempDir(), "nope.gob"))
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestTFIDFSaveBeforeFit(t *testing.T) {
	err := NewTFIDF().Save(filepath.Join(t.TempDir(), "model.gob"))
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestNgramsIncludeBigrams(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "a b", "b c"}, ngrams("a b c"))
	assert.Nil(t, ngrams(""))
}
