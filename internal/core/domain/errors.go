package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors and form the taxonomy
// surfaced to the boundary layer.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a document media type with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptFile indicates a document that declared a supported format
	// but could not be parsed to text.
	ErrCorruptFile = errors.New("corrupt document")

	// ErrEmbedding indicates the embedding capability failed.
	// Retryable; a whole batch for one document fails as a unit.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector whose dimensionality does not
	// match the dimension established by the store's first add.
	// This is a configuration error and fatal for the affected store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGeneration indicates the language model capability failed.
	// Retryable; the affected conversational turn is discarded.
	ErrGeneration = errors.New("generation failed")

	// ErrConfiguration indicates an invalid configuration value
	// (chunk size, missing session id, score floor out of range).
	ErrConfiguration = errors.New("invalid configuration")

	// ErrSessionClosed indicates an operation on an ended conversation.
	ErrSessionClosed = errors.New("session closed")

	// ErrEmbeddingUnavailable indicates no embedding service is configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates no language model service is configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
