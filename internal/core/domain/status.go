package domain

import "time"

// CacheStats summarises the result cache for the status report.
type CacheStats struct {
	// Status is "connected", "disconnected" or "error".
	Status string `json:"status"`

	// Entries is the number of live entries, -1 when unknown.
	Entries int `json:"entries"`

	// Hits and Misses count lookups since process start.
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// ManifestSummary summarises the artifact manifest for the status report.
type ManifestSummary struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Artifacts []string  `json:"artifacts"`
	Models    []string  `json:"models"`
	Indexes   []string  `json:"indexes"`
}

// ValidationReport aggregates the existence check over every registered
// artifact. A missing file marks the report invalid but never aborts the walk.
type ValidationReport struct {
	Valid        bool     `json:"valid"`
	MissingFiles []string `json:"missing_files"`
	TotalSize    int64    `json:"total_size"`
}

// EngineStatus is the readiness and health signal exposed to callers.
type EngineStatus struct {
	Cache          CacheStats       `json:"cache_stats"`
	Manifest       ManifestSummary  `json:"manifest_summary"`
	Validation     ValidationReport `json:"validation_report"`
	RecommendReady bool             `json:"recommend_ready"`
	SearchReady    bool             `json:"search_ready"`
	AskReady       bool             `json:"ask_ready"`
	EmbeddingModel string           `json:"embedding_model"`

	// EmbeddingOnline reports whether the embedding backend answered a
	// ping while the status was assembled.
	EmbeddingOnline bool `json:"embedding_online"`
}
