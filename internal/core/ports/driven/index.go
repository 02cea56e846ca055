package driven

import (
	"context"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// OpenState reports whether OpenOrCreate found a persisted index.
// Callers use it to distinguish "new session" from "recovered session"
// without re-deriving it.
type OpenState int

const (
	// StateLoaded means a persisted index was read from disk.
	StateLoaded OpenState = iota

	// StateCreatedEmpty means no usable index existed and an empty one
	// was initialised. Corruption degrades to this state, never errors.
	StateCreatedEmpty
)

// String returns a human-readable name for the state.
func (s OpenState) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "created_empty"
}

// IndexEntry pairs an embedding with the chunk it represents.
type IndexEntry struct {
	// Embedding is the fixed-dimension vector for the chunk.
	// Never mutated after insertion.
	Embedding []float32

	// Chunk carries the text, source name and sequence index stored in
	// the metadata sidecar.
	Chunk domain.Chunk
}

// IndexHandle is an open session index: one similarity structure plus
// its metadata sidecar.
//
// Concurrent searches are safe. Add and Persist must be serialised by
// the caller per session (the services registry holds a per-session
// lock around ingest-and-persist).
type IndexHandle interface {
	// SessionID returns the owning session id.
	SessionID() string

	// Dimensions returns the established vector dimension, or 0 while
	// the index is empty. The first Add fixes it for the handle's lifetime.
	Dimensions() int

	// Len returns the number of stored vectors.
	Len() int

	// Add appends entries to the structure and sidecar, assigning
	// internal positions monotonically. It does not deduplicate;
	// dedup is the ingestion pipeline's job via fingerprints.
	// Returns domain.ErrDimensionMismatch on a wrong-size vector.
	Add(ctx context.Context, entries []IndexEntry) error

	// Search returns at most k nearest neighbours by similarity,
	// descending, ties broken by insertion order (earlier wins).
	Search(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error)

	// Persist atomically writes the structure and sidecar as a matched
	// pair. A crash mid-write never leaves a readable-but-inconsistent pair.
	Persist(ctx context.Context) error

	// HasFingerprint reports whether a document fingerprint was already
	// ingested into this session.
	HasFingerprint(fp string) bool

	// RecordFingerprint marks a document fingerprint as ingested.
	// Durable after the next Persist.
	RecordFingerprint(fp string)

	// Fingerprints returns the recorded document fingerprints.
	Fingerprints() []string

	// Close releases in-memory resources. Safe to call multiple times.
	Close() error
}

// IndexStore owns the per-session on-disk index layout.
type IndexStore interface {
	// OpenOrCreate loads the persisted index for sessionID, or
	// initialises an empty one. Missing or corrupt files degrade to
	// an empty index (logged), never an error.
	OpenOrCreate(ctx context.Context, sessionID string) (IndexHandle, OpenState, error)

	// List returns summaries of all persisted sessions.
	List(ctx context.Context) ([]domain.SessionInfo, error)

	// Evict deletes the persisted files for a session. This is the only
	// destruction path; indexes are never removed implicitly.
	Evict(ctx context.Context, sessionID string) error
}
