// Package domain defines the core business entities for docport.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Uploaded bytes with a declared media type
//   - Chunk: The unit of embedding, retrieval and citation
//   - Conversation: An append-only sequence of grounded Q&A turns
//   - IngestionReport / ComparisonReport: result surfaces
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
