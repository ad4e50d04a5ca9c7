package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotReady indicates an index or model has not been built yet.
	// Serving paths translate this into empty results rather than a failure.
	ErrNotReady = errors.New("engine not ready")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyCorpus indicates a model fit was attempted over zero items.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrArtifactMissing indicates a persisted artifact does not exist on disk.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrArtifactCorrupt indicates a persisted artifact exists but failed
	// integrity checks during load.
	ErrArtifactCorrupt = errors.New("artifact corrupt")

	// ErrDimensionMismatch indicates embedding dimensionality does not match
	// the configured model dimension. Fatal at build time; vectors are never
	// silently truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGenerationUnavailable indicates the answer generation backend failed
	// or is not configured. The assistant falls back to its deterministic
	// answer rule; this error never surfaces to callers.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
)
