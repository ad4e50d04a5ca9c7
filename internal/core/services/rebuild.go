package services

import (
	"context"
	"fmt"
	"time"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driving"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
	"github.com/smartmarket-labs/retrieval-engine/internal/similarity"
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorindex"
	"github.com/smartmarket-labs/retrieval-engine/internal/vectorize"
)

// Ensure RebuildService implements the interface.
var _ driving.RebuildService = (*RebuildService)(nil)

// historyKeep bounds the per-task attempt history in the state store.
const historyKeep = 50

// RebuildService rebuilds the file-backed artifacts on behalf of the
// external scheduler. Every artifact write goes to a temp file first and
// is renamed into place; the in-memory snapshot swaps only after all
// writes succeed.
type RebuildService struct {
	engine *Engine
}

// NewRebuildService creates the rebuild service.
func NewRebuildService(engine *Engine) *RebuildService {
	return &RebuildService{engine: engine}
}

// RebuildCatalogIndex refits the lexical model, re-embeds every active
// item, rebuilds the item vector index and swaps the serving snapshot.
// A successful rebuild within the configured window is skipped unless
// forced.
func (s *RebuildService) RebuildCatalogIndex(ctx context.Context, force bool) (*domain.RebuildReport, error) {
	logger.Section("Catalog Index Rebuild")
	started := s.engine.now()

	if skip, err := s.shouldSkip(ctx, domain.TaskCatalogIndex, force); err != nil {
		return nil, err
	} else if skip {
		logger.Info("catalog rebuild skipped: recent successful build")
		return &domain.RebuildReport{
			Task:      domain.TaskCatalogIndex,
			Status:    domain.RebuildSkipped,
			StartedAt: started,
		}, nil
	}

	items, err := s.engine.catalog.ListActive(ctx)
	if err != nil {
		return s.failed(ctx, domain.TaskCatalogIndex, started, fmt.Errorf("list items: %w", err))
	}

	count, err := s.buildCatalogArtifacts(ctx, items)
	if err != nil {
		return s.failed(ctx, domain.TaskCatalogIndex, started, err)
	}

	s.engine.cachePurge(ctx, driven.NamespaceRecommend, driven.NamespaceSearch)
	s.recordSuccess(ctx, domain.TaskCatalogIndex, started, count)

	report := &domain.RebuildReport{
		Task:      domain.TaskCatalogIndex,
		Status:    domain.RebuildCompleted,
		Items:     count,
		StartedAt: started,
		Duration:  s.engine.now().Sub(started),
	}
	logger.Info("catalog rebuild completed: %d items in %s", count, report.Duration)
	return report, nil
}

// buildCatalogArtifacts does the heavy lifting: fit, embed, index, save,
// register, swap. Returns the number of items indexed.
func (s *RebuildService) buildCatalogArtifacts(ctx context.Context, items []domain.Item) (int, error) {
	vec := vectorize.NewVectorizer(s.engine.embedder, s.engine.cfg.Dimensions)
	if err := vec.Fit(items); err != nil {
		return 0, err
	}
	matrix, ids, err := vec.Embed(ctx, items)
	if err != nil {
		return 0, err
	}
	index, err := vectorindex.Build(matrix, ids)
	if err != nil {
		return 0, err
	}

	if err := vec.Save(s.engine.cfg.ArtifactDir); err != nil {
		return 0, err
	}
	indexPath := s.engine.artifactPath(ItemIndexFile)
	if err := index.Save(indexPath); err != nil {
		return 0, err
	}
	s.registerCatalogArtifacts(indexPath)

	ranker, err := similarity.NewRanker(matrix, ids)
	if err != nil {
		return 0, err
	}
	s.engine.catalogSnap.Store(&catalogState{vectorizer: vec, ranker: ranker, index: index})
	return len(ids), nil
}

func (s *RebuildService) registerCatalogArtifacts(indexPath string) {
	reg := s.engine.registry
	if reg == nil {
		return
	}
	dims := fmt.Sprintf("%d", s.engine.cfg.Dimensions)
	if err := reg.RegisterModel("tfidf", s.engine.artifactPath(vectorize.TFIDFModelFile), nil); err != nil {
		logger.Warn("register tfidf model: %v", err)
	}
	if err := reg.RegisterModel("item-embeddings", s.engine.artifactPath(vectorize.EmbeddingsFile),
		map[string]string{"dimensions": dims, "model": s.engine.embedder.ModelName()}); err != nil {
		logger.Warn("register embeddings: %v", err)
	}
	if err := reg.RegisterArtifact("item-ids", s.engine.artifactPath(vectorize.IDListFile), nil); err != nil {
		logger.Warn("register id list: %v", err)
	}
	if err := reg.RegisterIndex("items", indexPath, map[string]string{"dimensions": dims}); err != nil {
		logger.Warn("register item index: %v", err)
	}
}

// RebuildKnowledgeIndex re-ingests every knowledge document from the
// configured source and replaces the retrieval index.
func (s *RebuildService) RebuildKnowledgeIndex(ctx context.Context, force bool) (*domain.RebuildReport, error) {
	logger.Section("Knowledge Index Rebuild")
	started := s.engine.now()

	if s.engine.knowledge == nil {
		return s.failed(ctx, domain.TaskKnowledgeIndex, started,
			fmt.Errorf("no knowledge source configured"))
	}

	if skip, err := s.shouldSkip(ctx, domain.TaskKnowledgeIndex, force); err != nil {
		return nil, err
	} else if skip {
		logger.Info("knowledge rebuild skipped: recent successful build")
		return &domain.RebuildReport{
			Task:      domain.TaskKnowledgeIndex,
			Status:    domain.RebuildSkipped,
			StartedAt: started,
		}, nil
	}

	docs, err := s.engine.knowledge.Load(ctx)
	if err != nil {
		return s.failed(ctx, domain.TaskKnowledgeIndex, started, fmt.Errorf("load documents: %w", err))
	}

	index, err := s.engine.newKnowledgeIndex()
	if err != nil {
		return s.failed(ctx, domain.TaskKnowledgeIndex, started, err)
	}
	count, err := index.AddDocuments(ctx, docs)
	if err != nil {
		return s.failed(ctx, domain.TaskKnowledgeIndex, started, err)
	}
	if err := index.Save(s.engine.cfg.ArtifactDir); err != nil {
		return s.failed(ctx, domain.TaskKnowledgeIndex, started, err)
	}
	s.engine.registerKnowledgeArtifacts()
	s.engine.knowledgeSnap.Store(&knowledgeState{index: index})

	s.engine.cachePurge(ctx, driven.NamespaceAsk)
	s.recordSuccess(ctx, domain.TaskKnowledgeIndex, started, count)

	report := &domain.RebuildReport{
		Task:      domain.TaskKnowledgeIndex,
		Status:    domain.RebuildCompleted,
		Items:     count,
		StartedAt: started,
		Duration:  s.engine.now().Sub(started),
	}
	logger.Info("knowledge rebuild completed: %d chunks in %s", count, report.Duration)
	return report, nil
}

// PurgeCache drops every cached serving result.
func (s *RebuildService) PurgeCache(ctx context.Context) error {
	s.engine.cachePurge(ctx,
		driven.NamespaceRecommend, driven.NamespaceSearch, driven.NamespaceAsk)
	logger.Info("cache purged")
	return nil
}

// InvalidateItem drops cached results derived from the given item.
// Cache keys are hashed, so a single item cannot be targeted; the
// recommend and search namespaces are cleared wholesale, which is cheap
// relative to a stale recommendation.
func (s *RebuildService) InvalidateItem(ctx context.Context, itemID int64) error {
	s.engine.cachePurge(ctx, driven.NamespaceRecommend, driven.NamespaceSearch)
	logger.Debug("cache invalidated after item %d mutation", itemID)
	return nil
}

// shouldSkip applies the skip-if-recent policy.
func (s *RebuildService) shouldSkip(ctx context.Context, task string, force bool) (bool, error) {
	if force || s.engine.rebuilds == nil {
		return false, nil
	}
	last, err := s.engine.rebuilds.LastSuccess(ctx, task)
	if err != nil {
		return false, fmt.Errorf("rebuild %s: last success: %w", task, err)
	}
	if last.IsZero() {
		return false, nil
	}
	return s.engine.now().Sub(last) < s.engine.cfg.RebuildWindow, nil
}

// failed records the attempt and returns a failed report alongside the
// error. The previous artifacts and snapshot remain in place.
func (s *RebuildService) failed(ctx context.Context, task string, started time.Time, cause error) (*domain.RebuildReport, error) {
	ended := s.engine.now()
	logger.Warn("%s rebuild failed: %v", task, cause)
	s.recordAttempt(ctx, &domain.RebuildAttempt{
		Task:      task,
		StartedAt: started,
		EndedAt:   ended,
		Success:   false,
		Error:     cause.Error(),
	})
	report := &domain.RebuildReport{
		Task:      task,
		Status:    domain.RebuildFailed,
		StartedAt: started,
		Duration:  ended.Sub(started),
		Error:     cause.Error(),
	}
	return report, fmt.Errorf("rebuild %s: %w", task, cause)
}

func (s *RebuildService) recordSuccess(ctx context.Context, task string, started time.Time, items int) {
	s.recordAttempt(ctx, &domain.RebuildAttempt{
		Task:      task,
		StartedAt: started,
		EndedAt:   s.engine.now(),
		Success:   true,
		Items:     items,
	})
}

// recordAttempt is best-effort: bookkeeping failures never mask the
// rebuild outcome.
func (s *RebuildService) recordAttempt(ctx context.Context, attempt *domain.RebuildAttempt) {
	if s.engine.rebuilds == nil {
		return
	}
	if err := s.engine.rebuilds.RecordAttempt(ctx, attempt); err != nil {
		logger.Warn("record rebuild attempt: %v", err)
		return
	}
	if err := s.engine.rebuilds.PruneHistory(ctx, historyKeep); err != nil {
		logger.Warn("prune rebuild history: %v", err)
	}
}
