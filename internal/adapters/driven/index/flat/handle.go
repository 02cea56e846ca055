package flat

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// Ensure Handle implements the interface.
var _ driven.IndexHandle = (*Handle)(nil)

// Handle is an open session index. Vectors are stored L2-normalised so
// search reduces to dot products.
//
// Reads take the read lock and may run concurrently; Add and Persist
// take the write lock, so a search never observes a half-applied batch.
type Handle struct {
	mu        sync.RWMutex
	sessionID string
	dir       string

	dim          int
	vectors      [][]float32
	chunks       []domain.Chunk
	fingerprints map[string]struct{}
	updatedAt    time.Time
	closed       bool
}

func newHandle(sessionID, dir string) *Handle {
	return &Handle{
		sessionID:    sessionID,
		dir:          dir,
		fingerprints: make(map[string]struct{}),
	}
}

// SessionID returns the owning session id.
func (h *Handle) SessionID() string {
	return h.sessionID
}

// Dimensions returns the established vector dimension, 0 while empty.
func (h *Handle) Dimensions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dim
}

// Len returns the number of stored vectors.
func (h *Handle) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vectors)
}

// Add appends entries, assigning internal positions monotonically.
// The first call fixes the index dimension for the handle's lifetime.
func (h *Handle) Add(_ context.Context, entries []driven.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("index %s: handle closed", h.sessionID)
	}

	dim := h.dim
	if dim == 0 {
		dim = len(entries[0].Embedding)
		if dim == 0 {
			return fmt.Errorf("%w: empty embedding", domain.ErrDimensionMismatch)
		}
	}

	// Validate the whole batch before touching state: a failed Add must
	// leave the index exactly as it was.
	for _, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("%w: got %d, index has %d",
				domain.ErrDimensionMismatch, len(e.Embedding), dim)
		}
	}

	h.dim = dim
	for _, e := range entries {
		h.vectors = append(h.vectors, normalise(e.Embedding))
		h.chunks = append(h.chunks, e.Chunk)
	}
	return nil
}

// Search returns at most k nearest neighbours, descending similarity,
// ties broken by insertion order.
func (h *Handle) Search(_ context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, fmt.Errorf("index %s: handle closed", h.sessionID)
	}
	if k <= 0 || len(h.vectors) == 0 {
		return nil, nil
	}
	if h.dim != 0 && len(query) != h.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d",
			domain.ErrDimensionMismatch, len(query), h.dim)
	}

	q := normalise(query)
	positions := make([]int, len(h.vectors))
	scores := make([]float64, len(h.vectors))
	for i, v := range h.vectors {
		positions[i] = i
		scores[i] = dot(v, q)
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(positions, func(a, b int) bool {
		return scores[positions[a]] > scores[positions[b]]
	})

	if k > len(positions) {
		k = len(positions)
	}
	results := make([]domain.ScoredChunk, k)
	for i := 0; i < k; i++ {
		pos := positions[i]
		results[i] = domain.ScoredChunk{Chunk: h.chunks[pos], Score: scores[pos]}
	}
	return results, nil
}

// HasFingerprint reports whether fp was already ingested into this session.
func (h *Handle) HasFingerprint(fp string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.fingerprints[fp]
	return ok
}

// RecordFingerprint marks fp as ingested. Durable after the next Persist.
func (h *Handle) RecordFingerprint(fp string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fingerprints[fp] = struct{}{}
}

// Fingerprints returns the recorded document fingerprints, sorted.
func (h *Handle) Fingerprints() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fps := make([]string, 0, len(h.fingerprints))
	for fp := range h.fingerprints {
		fps = append(fps, fp)
	}
	sort.Strings(fps)
	return fps
}

// Persist atomically writes the vector blob and metadata sidecar.
// Both files are written to temporary paths first and renamed into
// place, so a crash mid-write leaves either the old pair or the new
// pair, never a mixed one that load would accept.
func (h *Handle) Persist(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("index %s: handle closed", h.sessionID)
	}

	if err := os.MkdirAll(h.dir, 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	h.updatedAt = time.Now().UTC()

	sc := sidecar{
		Dimension:    h.dim,
		Fingerprints: fingerprintSlice(h.fingerprints),
		Chunks:       make([]chunkMeta, len(h.chunks)),
		UpdatedAt:    h.updatedAt,
	}
	for i, c := range h.chunks {
		sc.Chunks[i] = chunkMeta{ID: c.ID, Source: c.Source, Sequence: c.Sequence, Text: c.Text}
	}

	scJSON, err := json.Marshal(&sc)
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}

	vecPath := filepath.Join(h.dir, vectorsFile)
	scPath := filepath.Join(h.dir, sidecarFile)

	if err := writeAtomic(vecPath, encodeVectors(h.dim, h.vectors)); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	if err := writeAtomic(scPath, scJSON); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}

	logger.Debug("Session %s persisted: %d vectors, %d fingerprints",
		h.sessionID, len(h.vectors), len(h.fingerprints))
	return nil
}

// Close releases in-memory resources. Idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.vectors = nil
	h.chunks = nil
	h.fingerprints = nil
	return nil
}

// load reads the persisted pair. Any inconsistency (missing file, bad
// header, sidecar/blob count mismatch) resets the handle to empty and
// reports StateCreatedEmpty; load never fails.
func (h *Handle) load() driven.OpenState {
	sc, err := readSidecar(filepath.Join(h.dir, sidecarFile))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Session %s: unreadable sidecar, starting empty: %v", h.sessionID, err)
		}
		return driven.StateCreatedEmpty
	}

	dim, vectors, err := decodeVectorsFile(filepath.Join(h.dir, vectorsFile))
	if err != nil {
		logger.Warn("Session %s: unreadable vectors, starting empty: %v", h.sessionID, err)
		return driven.StateCreatedEmpty
	}

	if dim != sc.Dimension || len(vectors) != len(sc.Chunks) {
		logger.Warn("Session %s: sidecar and vectors disagree (%d/%d vs %d/%d), starting empty",
			h.sessionID, sc.Dimension, len(sc.Chunks), dim, len(vectors))
		return driven.StateCreatedEmpty
	}

	h.dim = dim
	h.vectors = vectors
	h.chunks = make([]domain.Chunk, len(sc.Chunks))
	for i, m := range sc.Chunks {
		h.chunks[i] = domain.Chunk{ID: m.ID, Source: m.Source, Sequence: m.Sequence, Text: m.Text}
	}
	for _, fp := range sc.Fingerprints {
		h.fingerprints[fp] = struct{}{}
	}
	h.updatedAt = sc.UpdatedAt
	return driven.StateLoaded
}

func fingerprintSlice(set map[string]struct{}) []string {
	fps := make([]string, 0, len(set))
	for fp := range set {
		fps = append(fps, fp)
	}
	sort.Strings(fps)
	return fps
}

// normalise returns an L2-normalised copy of v.
// Zero vectors are returned as-is; they score 0 against everything.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// writeAtomic writes data to a temporary file in the same directory and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
