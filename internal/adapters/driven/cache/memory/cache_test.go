package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "smartmarket:search:abc", []byte("results"), time.Minute)
	got, ok := c.Get(ctx, "smartmarket:search:abc")
	require.True(t, ok)
	assert.Equal(t, []byte("results"), got)

	_, ok = c.Get(ctx, "smartmarket:search:other")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set(ctx, "key", []byte("v"), time.Minute)

	now = now.Add(2 * time.Minute)
	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)
}

func TestCacheDeletePattern(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "smartmarket:recommendations:aaaa", []byte("1"), time.Minute)
	c.Set(ctx, "smartmarket:recommendations:bbbb", []byte("2"), time.Minute)
	c.Set(ctx, "smartmarket:search:cccc", []byte("3"), time.Minute)

	c.DeletePattern(ctx, "smartmarket:recommendations:*")

	_, ok := c.Get(ctx, "smartmarket:recommendations:aaaa")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "smartmarket:search:cccc")
	assert.True(t, ok)
}

func TestCacheStats(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Get(ctx, "a")
	c.Get(ctx, "missing")

	stats := c.Stats(ctx)
	assert.Equal(t, "connected", stats.Status)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCacheZeroTTLNotStored(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), 0)
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}
