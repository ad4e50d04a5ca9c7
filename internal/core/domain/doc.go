// Package domain defines the core business entities for the retrieval engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Item: a catalog item consumed read-only from the product store
//   - KnowledgeDocument / Chunk: the units of the RAG knowledge base
//   - Recommendation / SearchResult: ranked serving results
//   - Answer: the result of a retrieval-augmented question
//   - RebuildReport: the outcome of an index rebuild attempt
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain
