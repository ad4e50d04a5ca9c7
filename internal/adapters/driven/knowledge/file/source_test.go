package file

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsMarkdownAndText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "retours.md"), []byte("politique de retour"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "livraison.txt"), []byte("délais de livraison"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.json"), []byte("{}"), 0o600))

	src, err := NewSource(dir)
	require.NoError(t, err)

	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Sorted by path.
	assert.Equal(t, "livraison.txt", docs[0].ID)
	assert.Equal(t, "retours.md", docs[1].ID)
	assert.Equal(t, "politique de retour", docs[1].Content)
	assert.Equal(t, "retours.md", docs[1].Metadata["source"])
	assert.False(t, docs[0].CreatedAt.IsZero())
}

func TestLoadWalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "faq"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq", "garantie.md"), []byte("deux ans"), 0o600))

	src, err := NewSource(dir)
	require.NoError(t, err)

	docs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, filepath.Join("faq", "garantie.md"), docs[0].ID)
}

func TestNewSourceRejectsMissingDir(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatchFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	require.NoError(t, src.Watch(ctx, func() { fired.Add(1) }))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("doc"), 0o600))

	assert.Eventually(t, func() bool { return fired.Load() > 0 },
		5*time.Second, 50*time.Millisecond)
}

func TestWatchIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	require.NoError(t, src.Watch(ctx, func() { fired.Add(1) }))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp.swp"), []byte("x"), 0o600))

	time.Sleep(2 * debounceWindow)
	assert.Zero(t, fired.Load())
}
