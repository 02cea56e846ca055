package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SessionInfo summarises a persisted session index.
type SessionInfo struct {
	// ID is the session identifier (also the on-disk directory name).
	ID string

	// Documents is the number of distinct fingerprints ingested.
	Documents int

	// Chunks is the number of vectors in the index.
	Chunks int

	// Dimension is the established embedding dimension, 0 if empty.
	Dimension int

	// ContentFingerprint identifies the ingested document set,
	// independent of ingestion order. Two sessions holding the same
	// documents carry the same value.
	ContentFingerprint string

	// UpdatedAt is the last persist time.
	UpdatedAt time.Time
}

// NewSessionID mints a session identifier of the form
// session_20060102_150405_8hexchars. Used when the caller does not
// supply one.
func NewSessionID() string {
	ts := time.Now().UTC().Format("20060102_150405")
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("session_%s_%s", ts, hex.EncodeToString(b[:]))
}

// ValidSessionID reports whether id is safe to use as a directory name.
// Rejects empty ids and ids containing path separators or traversal.
func ValidSessionID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}
