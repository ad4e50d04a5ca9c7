package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartmarket-labs/retrieval-engine/internal/artifact"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
)

// stubEmbedder is a deterministic bag-of-words embedder: texts sharing
// vocabulary get overlapping vectors.
type stubEmbedder struct {
	dim  int
	fail error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return bagVector(text, s.dim), nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.fail != nil {
		return nil, s.fail
	}
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
	for _, tok := range strings.Fields(strings.ToLower(text)) {
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

// stubGenerator returns a canned completion or an error.
type stubGenerator struct {
	reply   string
	fail    error
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.fail != nil {
		return "", s.fail
	}
	return s.reply, nil
}

func (s *stubGenerator) ModelName() string            { return "stub-gen" }
func (s *stubGenerator) Ping(_ context.Context) error { return nil }
func (s *stubGenerator) Close() error                 { return nil }

// stubCatalog is an in-memory CatalogStore.
type stubCatalog struct {
	items map[int64]domain.Item
	fail  error
}

func newStubCatalog(items ...domain.Item) *stubCatalog {
	c := &stubCatalog{items: make(map[int64]domain.Item, len(items))}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *stubCatalog) ListActive(_ context.Context) ([]domain.Item, error) {
	if c.fail != nil {
		return nil, c.fail
	}
	var out []domain.Item
	for id := int64(0); id <= 1000; id++ {
		if item, ok := c.items[id]; ok && item.Active {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *stubCatalog) Get(_ context.Context, id int64) (*domain.Item, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

func (c *stubCatalog) FilterIDs(_ context.Context, ids []int64, filters domain.SearchFilters) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		item, ok := c.items[id]
		if ok && filters.Match(item) {
			out = append(out, id)
		}
	}
	return out, nil
}

// stubCache is a minimal ResultCache without expiry.
type stubCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string][]byte)}
}

func (c *stubCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
}

func (c *stubCache) DeletePattern(_ context.Context, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			delete(c.entries, k)
		}
	}
}

func (c *stubCache) Stats(_ context.Context) domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{Status: "connected", Entries: len(c.entries)}
}

func (c *stubCache) Close() error { return nil }

func (c *stubCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// stubRebuildStore keeps attempts in memory.
type stubRebuildStore struct {
	mu       sync.Mutex
	attempts []domain.RebuildAttempt
}

func (s *stubRebuildStore) LastSuccess(_ context.Context, task string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	for _, a := range s.attempts {
		if a.Task == task && a.Success && a.EndedAt.After(last) {
			last = a.EndedAt
		}
	}
	return last, nil
}

func (s *stubRebuildStore) RecordAttempt(_ context.Context, attempt *domain.RebuildAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *stubRebuildStore) History(_ context.Context, task string, limit int) ([]domain.RebuildAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RebuildAttempt
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.attempts[i].Task == task {
			out = append(out, s.attempts[i])
		}
	}
	return out, nil
}

func (s *stubRebuildStore) PruneHistory(_ context.Context, _ int) error { return nil }

func (s *stubRebuildStore) count(task string, success bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attempts {
		if a.Task == task && a.Success == success {
			n++
		}
	}
	return n
}

// stubKnowledge is a fixed KnowledgeSource.
type stubKnowledge struct {
	docs []domain.KnowledgeDocument
	fail error
}

func (s *stubKnowledge) Load(_ context.Context) ([]domain.KnowledgeDocument, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.docs, nil
}

var errBackendDown = errors.New("backend down")

// testDim is small enough to be fast and large enough that the test
// vocabulary hashes without bucket collisions.
const testDim = 128

// testEnv wires an engine over in-memory stubs and a temp artifact dir.
// Tests mutate the exported stub fields (or the engine's unexported ones,
// same package) before exercising a service.
type testEnv struct {
	engine   *Engine
	catalog  *stubCatalog
	embedder *stubEmbedder
	cache    *stubCache
	rebuilds *stubRebuildStore
	registry *artifact.Registry
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	registry, err := artifact.NewRegistry(dir)
	require.NoError(t, err)

	env := &testEnv{
		catalog:  newStubCatalog(catalogItems()...),
		embedder: &stubEmbedder{dim: testDim},
		cache:    newStubCache(),
		rebuilds: &stubRebuildStore{},
		registry: registry,
		dir:      dir,
	}
	env.engine = NewEngine(
		Config{ArtifactDir: dir, Dimensions: testDim},
		env.catalog, env.embedder, nil, env.cache, registry, env.rebuilds, nil,
	)
	return env
}

// reopen builds a second engine over the same artifact directory, as a
// fresh process would, sharing nothing in memory with the first.
func (env *testEnv) reopen(t *testing.T) *Engine {
	t.Helper()
	registry, err := artifact.NewRegistry(env.dir)
	require.NoError(t, err)
	return NewEngine(
		Config{ArtifactDir: env.dir, Dimensions: testDim},
		env.catalog, env.embedder, nil, newStubCache(), registry, &stubRebuildStore{}, nil,
	)
}

// rebuildCatalog runs a forced catalog rebuild and fails the test on error.
func (env *testEnv) rebuildCatalog(t *testing.T) {
	t.Helper()
	report, err := NewRebuildService(env.engine).RebuildCatalogIndex(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, domain.RebuildCompleted, report.Status)
}

// catalogItems is the canonical three-item fixture: two near-identical
// running shoes and a car tire.
func catalogItems() []domain.Item {
	return []domain.Item{
		{ID: 1, Name: "Running Rouge", CategoryID: 1, CategoryName: "Sport", Price: 89, Stock: 5, Active: true},
		{ID: 2, Name: "Running Bleu", CategoryID: 1, CategoryName: "Sport", Price: 99, Stock: 8, Active: true},
		{ID: 3, Name: "Pneu Hiver", CategoryID: 2, CategoryName: "Auto", Price: 75, Stock: 20, Active: true},
	}
}
