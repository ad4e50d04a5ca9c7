// Package cli implements the retrieval command-line interface. Each
// command file registers itself on the root command; the engine and its
// services are wired lazily before the first command that needs them.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/cache/memory"
	cachesqlite "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/cache/sqlite"
	catalogsqlite "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/catalog/sqlite"
	embedollama "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/embedding/ollama"
	embedopenai "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/embedding/openai"
	genollama "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/generation/ollama"
	genopenai "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/generation/openai"
	"github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/knowledge/file"
	statesqlite "github.com/smartmarket-labs/retrieval-engine/internal/adapters/driven/state/sqlite"
	"github.com/smartmarket-labs/retrieval-engine/internal/artifact"
	"github.com/smartmarket-labs/retrieval-engine/internal/config"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driven"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/ports/driving"
	"github.com/smartmarket-labs/retrieval-engine/internal/core/services"
	"github.com/smartmarket-labs/retrieval-engine/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Wired services, set by initEngine.
var (
	cfg              config.Config
	recommendService driving.RecommendService
	searchService    driving.SearchService
	assistantService driving.AssistantService
	rebuildService   driving.RebuildService
	statusService    driving.StatusService

	knowledgeSource *file.Source
	closers         []io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "retrieval",
	Short: "SmartMarket content-based retrieval engine",
	Long: `Content-based recommendations, semantic catalog search and a
knowledge-grounded shopping assistant for the SmartMarket storefront.

Artifacts are rebuilt on demand with the rebuild command and served
from local files; no network is needed at query time except for the
embedding and generation backends.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initEngine()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("close: %v", err)
			}
		}
		closers = nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to retrieval.toml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initEngine loads the configuration, builds the driven adapters and
// wires the services. Already-wired services (tests inject their own)
// are left alone.
func initEngine() error {
	if recommendService != nil {
		return nil
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	catalog, err := catalogsqlite.Open(cfg.Engine.CatalogDB)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	closers = append(closers, catalog)

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	closers = append(closers, embedder)

	generator, err := newGenerator(cfg.Generation)
	if err != nil {
		return err
	}
	if generator != nil {
		closers = append(closers, generator)
	}

	cache, err := newCache(cfg.Cache)
	if err != nil {
		return err
	}
	closers = append(closers, cache)

	registry, err := artifact.NewRegistry(cfg.Engine.ArtifactDir)
	if err != nil {
		return fmt.Errorf("open artifact registry: %w", err)
	}

	rebuilds, err := statesqlite.Open(cfg.Engine.StateDB)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	closers = append(closers, rebuilds)

	// The knowledge directory is optional; without it the assistant
	// serves whatever was ingested earlier.
	knowledgeSource = nil
	var knowledge driven.KnowledgeSource
	if cfg.Knowledge.Dir != "" {
		src, err := file.NewSource(cfg.Knowledge.Dir)
		if err != nil {
			logger.Debug("knowledge source unavailable: %v", err)
		} else {
			knowledgeSource = src
			knowledge = src
		}
	}

	engine := services.NewEngine(services.Config{
		ArtifactDir:             cfg.Engine.ArtifactDir,
		Dimensions:              cfg.Embedding.Dimensions,
		CachePrefix:             cfg.Cache.KeyPrefix,
		CacheTTL:                cfg.Cache.TTL,
		RebuildWindow:           cfg.Engine.RebuildWindow,
		ChunkSize:               cfg.Knowledge.ChunkSize,
		ChunkOverlap:            cfg.Knowledge.ChunkOverlap,
		KnowledgeTopK:           cfg.Knowledge.TopK,
		GenerationTimeout:       cfg.Generation.Timeout,
		GenerationMaxTokens:     cfg.Generation.MaxTokens,
		GenerationTemperature:   cfg.Generation.Temperature,
		GenerationRatePerMinute: cfg.Generation.RatePerMinute,
	}, catalog, embedder, generator, cache, registry, rebuilds, knowledge)

	recommendService = services.NewRecommendService(engine)
	searchService = services.NewSearchService(engine)
	assistantService = services.NewAssistantService(engine)
	rebuildService = services.NewRebuildService(engine)
	statusService = services.NewStatusService(engine)
	return nil
}

func newEmbedder(c config.Embedding) (driven.EmbeddingService, error) {
	switch c.Backend {
	case "openai":
		svc, err := embedopenai.NewEmbeddingService(embedopenai.Config{
			APIKey:     c.APIKey,
			BaseURL:    c.BaseURL,
			Model:      c.Model,
			Dimensions: c.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding backend: %w", err)
		}
		return svc, nil
	default:
		return embedollama.NewEmbeddingService(embedollama.Config{
			BaseURL:    c.BaseURL,
			Model:      c.Model,
			Dimensions: c.Dimensions,
		}), nil
	}
}

func newGenerator(c config.Generation) (driven.GenerationService, error) {
	switch c.Backend {
	case "":
		return nil, nil
	case "openai":
		svc, err := genopenai.NewGenerationService(genopenai.Config{
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("generation backend: %w", err)
		}
		return svc, nil
	default:
		return genollama.NewGenerationService(genollama.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
		}), nil
	}
}

func newCache(c config.Cache) (driven.ResultCache, error) {
	if c.Backend == "sqlite" {
		cache, err := cachesqlite.Open(c.Path)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return cache, nil
	}
	return memory.New(), nil
}
