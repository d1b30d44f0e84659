// Package domain defines the core business entities of the assistant backend.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A bounded slice of source text with its embedding
//   - ScoredChunk: A chunk paired with its similarity to a query
//   - ContextItem: The caller-facing shape of a retrieval hit
//   - IngestRequest / IngestResult: One document through the pipeline
//   - RawDocument: Opaque bytes from a connector, before extraction
//
// It also owns the error taxonomy and the cosine similarity function,
// since both are shared by every adapter and service.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
