// Package config loads the engine configuration from a TOML file and
// fills in defaults for everything left unset. The file is searched in
// the working directory first, then under the user config directory, so
// a checked-in project file wins over the per-user one.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// File names and locations.
const (
	FileName   = "retrieval.toml"
	UserSubdir = ".smartmarket"
)

// Config is the full engine configuration.
type Config struct {
	Engine     Engine     `toml:"engine"`
	Embedding  Embedding  `toml:"embedding"`
	Generation Generation `toml:"generation"`
	Cache      Cache      `toml:"cache"`
	Knowledge  Knowledge  `toml:"knowledge"`
}

// Engine holds artifact and rebuild settings.
type Engine struct {
	// ArtifactDir is where models, matrices and indexes are persisted.
	ArtifactDir string `toml:"artifact_dir"`

	// CatalogDB is the sqlite catalog database path.
	CatalogDB string `toml:"catalog_db"`

	// StateDB is the sqlite path for rebuild attempt history.
	StateDB string `toml:"state_db"`

	// RebuildWindow is how recent a successful rebuild must be for the
	// next one to be skipped without force.
	RebuildWindow time.Duration `toml:"rebuild_window"`

	// DefaultRecommendK and DefaultSearchK set result sizes when the
	// caller passes none.
	DefaultRecommendK int `toml:"default_recommend_k"`
	DefaultSearchK    int `toml:"default_search_k"`
}

// Embedding selects and tunes the embedding backend.
type Embedding struct {
	// Backend is "ollama" or "openai".
	Backend string `toml:"backend"`

	// Model is the backend-specific model name.
	Model string `toml:"model"`

	// BaseURL overrides the backend endpoint (Ollama host or an
	// OpenAI-compatible gateway).
	BaseURL string `toml:"base_url"`

	// APIKey authenticates against hosted backends. The
	// SMARTMARKET_EMBEDDING_API_KEY environment variable takes
	// precedence so keys stay out of config files.
	APIKey string `toml:"api_key"`

	// Dimensions is the expected vector size; mismatching backends are
	// rejected at build time.
	Dimensions int `toml:"dimensions"`
}

// Generation selects the text generation backend for the assistant.
// An empty backend disables generation; the assistant then always uses
// the deterministic fallback.
type Generation struct {
	Backend     string        `toml:"backend"`
	Model       string        `toml:"model"`
	BaseURL     string        `toml:"base_url"`
	APIKey      string        `toml:"api_key"`
	Timeout     time.Duration `toml:"timeout"`
	MaxTokens   int           `toml:"max_tokens"`
	Temperature float64       `toml:"temperature"`

	// RatePerMinute bounds backend calls; 0 disables the limiter.
	RatePerMinute int `toml:"rate_per_minute"`
}

// Cache tunes the result cache.
type Cache struct {
	// Backend is "memory" or "sqlite".
	Backend string `toml:"backend"`

	// Path is the sqlite cache database path, ignored by the memory
	// backend.
	Path string `toml:"path"`

	// TTL is the entry lifetime.
	TTL time.Duration `toml:"ttl"`

	// KeyPrefix namespaces keys when the backend is shared.
	KeyPrefix string `toml:"key_prefix"`
}

// Knowledge configures the assistant's document sources.
type Knowledge struct {
	// Dir is the directory of knowledge documents to ingest.
	Dir string `toml:"dir"`

	// Watch re-ingests automatically when files under Dir change.
	Watch bool `toml:"watch"`

	// ChunkSize and ChunkOverlap control document splitting, in words.
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// TopK is how many chunks ground each answer.
	TopK int `toml:"top_k"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Engine: Engine{
			ArtifactDir:       "artifacts",
			CatalogDB:         "catalog.db",
			StateDB:           "engine_state.db",
			RebuildWindow:     domain.DefaultRebuildWindow,
			DefaultRecommendK: domain.DefaultRecommendK,
			DefaultSearchK:    domain.DefaultSearchK,
		},
		Embedding: Embedding{
			Backend:    "ollama",
			Model:      "all-minilm",
			BaseURL:    "http://localhost:11434",
			Dimensions: 384,
		},
		Generation: Generation{
			Timeout:       10 * time.Second,
			MaxTokens:     512,
			Temperature:   0.2,
			RatePerMinute: 60,
		},
		Cache: Cache{
			Backend:   "memory",
			Path:      "cache.db",
			TTL:       time.Hour,
			KeyPrefix: "smartmarket",
		},
		Knowledge: Knowledge{
			Dir:          "knowledge",
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         5,
		},
	}
}

// Load reads the configuration from path. An empty path triggers the
// search order: ./retrieval.toml, then ~/.smartmarket/retrieval.toml;
// when neither exists the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		var found bool
		path, found = findFile()
		if !found {
			applyEnv(&cfg)
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func findFile() (string, bool) {
	if _, err := os.Stat(FileName); err == nil {
		return FileName, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(home, UserSubdir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	return "", false
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("SMARTMARKET_EMBEDDING_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
	if key := os.Getenv("SMARTMARKET_GENERATION_API_KEY"); key != "" {
		cfg.Generation.APIKey = key
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions))
	}
	switch c.Embedding.Backend {
	case "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedding.backend must be ollama or openai, got %q", c.Embedding.Backend))
	}
	switch c.Generation.Backend {
	case "", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("generation.backend must be empty, ollama or openai, got %q", c.Generation.Backend))
	}
	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory or sqlite, got %q", c.Cache.Backend))
	}
	if c.Knowledge.ChunkSize <= 0 || c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		errs = append(errs, fmt.Errorf("knowledge chunking: size %d overlap %d", c.Knowledge.ChunkSize, c.Knowledge.ChunkOverlap))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL))
	}
	return errors.Join(errs...)
}
