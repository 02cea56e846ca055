package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint computes the content-addressed identifier for a document.
// It is a SHA-256 over the raw bytes: identical content always yields the
// same fingerprint regardless of file name or upload time. Used as the
// dedup key inside a session index.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FingerprintSet computes a single fingerprint for a set of member
// fingerprints. Members are sorted before hashing so the result is
// independent of upload order.
func FingerprintSet(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}
