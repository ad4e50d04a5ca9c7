package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartmarket-labs/retrieval-engine/internal/artifact"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
	"github.com/smartmarket-labs/retrieval-engine/internal/rag"
	"github.com/smartmarket-labs/retrieval-engine/internal/similarity"
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorindex"
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorize"
)

// ItemIndexFile is the catalog vector index file name within the
// artifact directory.
const ItemIndexFile = "item_index.bin"

// searchMinScore drops noise-level matches from the search path.
const searchMinScore = 0.1

// Config carries the tuning knobs shared by the services.
type Config struct {
	// ArtifactDir is where models, matrices and indexes are persisted.
	ArtifactDir string

	// Dimensions is the configured embedding size.
	Dimensions int

	// CachePrefix namespaces cache keys; CacheTTL bounds entry lifetime.
	CachePrefix string
	CacheTTL    time.Duration

	// RebuildWindow is the skip-if-recent window.
	RebuildWindow time.Duration

	// ChunkSize and ChunkOverlap control knowledge document splitting.
	ChunkSize    int
	ChunkOverlap int

	// KnowledgeTopK is how many chunks ground each answer.
	KnowledgeTopK int

	// Generation tuning, used when a generation backend is configured.
	GenerationTimeout       time.Duration
	GenerationMaxTokens     int
	GenerationTemperature   float64
	GenerationRatePerMinute int
}

// withDefaults fills the zero values with the engine defaults.
func (c Config) withDefaults() Config {
	if c.ArtifactDir == "" {
		c.ArtifactDir = "artifacts"
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 384
	}
	if c.CachePrefix == "" {
		c.CachePrefix = "smartmarket"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.RebuildWindow <= 0 {
		c.RebuildWindow = domain.DefaultRebuildWindow
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = rag.DefaultChunkSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = rag.DefaultChunkOverlap
	}
	if c.KnowledgeTopK <= 0 {
		c.KnowledgeTopK = 5
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 10 * time.Second
	}
	if c.GenerationMaxTokens <= 0 {
		c.GenerationMaxTokens = 512
	}
	return c
}

// catalogState is one immutable generation of the catalog serving state.
type catalogState struct {
	vectorizer *vectorize.Vectorizer
	ranker     *similarity.Ranker
	index      *vectorindex.Index
}

// knowledgeState is one immutable generation of the knowledge index.
type knowledgeState struct {
	index *rag.Index
}

// Engine owns the serving state and the driven dependencies shared by
// every service. Snapshots load lazily on first use and are replaced
// wholesale by rebuilds.
type Engine struct {
	cfg Config

	catalog   driven.CatalogStore
	embedder  driven.EmbeddingService
	generator driven.GenerationService // nil disables generation
	cache     driven.ResultCache
	registry  *artifact.Registry
	rebuilds  driven.RebuildStore
	knowledge driven.KnowledgeSource // nil disables knowledge rebuilds

	loadMu        sync.Mutex
	catalogSnap   atomic.Pointer[catalogState]
	knowledgeSnap atomic.Pointer[knowledgeState]

	now func() time.Time
}

// NewEngine wires the shared engine core. generator and knowledge may be
// nil; the assistant then falls back to its deterministic rule and
// knowledge rebuilds report failure.
func NewEngine(
	cfg Config,
	catalog driven.CatalogStore,
	embedder driven.EmbeddingService,
	generator driven.GenerationService,
	cache driven.ResultCache,
	registry *artifact.Registry,
	rebuilds driven.RebuildStore,
	knowledge driven.KnowledgeSource,
) *Engine {
	return &Engine{
		cfg:       cfg.withDefaults(),
		catalog:   catalog,
		embedder:  embedder,
		generator: generator,
		cache:     cache,
		registry:  registry,
		rebuilds:  rebuilds,
		knowledge: knowledge,
		now:       time.Now,
	}
}

// catalogReady returns the current catalog snapshot, loading it from the
// artifact directory on first use. A missing or corrupt artifact set
// leaves the engine not-ready; serving paths translate that to empty
// results.
func (e *Engine) catalogReady(ctx context.Context) (*catalogState, error) {
	if snap := e.catalogSnap.Load(); snap != nil {
		return snap, nil
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if snap := e.catalogSnap.Load(); snap != nil {
		return snap, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := vectorize.NewVectorizer(e.embedder, e.cfg.Dimensions)
	if err := vec.Load(e.cfg.ArtifactDir); err != nil {
		if errors.Is(err, domain.ErrArtifactMissing) {
			return nil, fmt.Errorf("catalog artifacts not built: %w", domain.ErrNotReady)
		}
		logger.Warn("catalog state load failed: %v", err)
		return nil, fmt.Errorf("load catalog state: %w", err)
	}

	ranker, err := similarity.NewRanker(vec.Matrix(), vec.IDs())
	if err != nil {
		return nil, fmt.Errorf("load catalog state: %w", err)
	}

	index, err := vectorindex.Load(e.artifactPath(ItemIndexFile))
	if err != nil {
		if errors.Is(err, domain.ErrArtifactMissing) {
			return nil, fmt.Errorf("item index not built: %w", domain.ErrNotReady)
		}
		logger.Warn("item index load failed: %v", err)
		return nil, fmt.Errorf("load item index: %w", err)
	}

	snap := &catalogState{vectorizer: vec, ranker: ranker, index: index}
	e.catalogSnap.Store(snap)
	logger.Debug("catalog state loaded: %d items", ranker.Size())
	return snap, nil
}

// knowledgeReady returns the current knowledge snapshot, loading it on
// first use. Unlike the catalog path a missing knowledge index is not an
// error: the assistant starts from an empty index and Ingest extends it.
func (e *Engine) knowledgeReady(ctx context.Context) (*knowledgeState, error) {
	if snap := e.knowledgeSnap.Load(); snap != nil {
		return snap, nil
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if snap := e.knowledgeSnap.Load(); snap != nil {
		return snap, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index, err := e.newKnowledgeIndex()
	if err != nil {
		return nil, err
	}
	if err := index.Load(e.cfg.ArtifactDir); err != nil {
		if !errors.Is(err, domain.ErrArtifactMissing) {
			logger.Warn("knowledge state load failed: %v", err)
			return nil, fmt.Errorf("load knowledge state: %w", err)
		}
		logger.Debug("no persisted knowledge index, starting empty")
	}

	snap := &knowledgeState{index: index}
	e.knowledgeSnap.Store(snap)
	logger.Debug("knowledge state loaded: %d chunks", index.Size())
	return snap, nil
}

func (e *Engine) newKnowledgeIndex() (*rag.Index, error) {
	chunker, err := rag.NewChunker(e.cfg.ChunkSize, e.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return rag.NewIndex(e.embedder, chunker, e.cfg.Dimensions)
}

func (e *Engine) artifactPath(name string) string {
	return filepath.Join(e.cfg.ArtifactDir, name)
}

// cacheGet fetches and decodes a cached value. Every cache interaction
// is best-effort.
func (e *Engine) cacheGet(ctx context.Context, key driven.CacheKey) ([]byte, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(ctx, driven.FormatKey(e.cfg.CachePrefix, key))
}

func (e *Engine) cacheSet(ctx context.Context, key driven.CacheKey, value []byte) {
	if e.cache == nil {
		return
	}
	e.cache.Set(ctx, driven.FormatKey(e.cfg.CachePrefix, key), value, e.cfg.CacheTTL)
}

func (e *Engine) cachePurge(ctx context.Context, namespaces ...string) {
	if e.cache == nil {
		return
	}
	for _, ns := range namespaces {
		e.cache.DeletePattern(ctx, driven.NamespacePattern(e.cfg.CachePrefix, ns))
	}
}
