// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CatalogStore: read-only access to catalog items
//   - EmbeddingService: generates dense vector embeddings
//   - ResultCache: best-effort cache in front of the serving paths
//   - RebuildStore: rebuild attempt bookkeeping
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - GenerationService: answer generation. Without it, the assistant uses
//     its deterministic fallback rule.
//   - KnowledgeSource: knowledge base loading. Without it, Ask reports
//     no_sources.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
