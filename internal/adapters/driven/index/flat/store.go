package flat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// File names inside each session directory. The pair is written and
// read together; a session with only one of them is treated as absent.
const (
	vectorsFile = "vectors.bin"
	sidecarFile = "meta.json"
)

// Store owns the per-session index layout under a data directory.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir.
// If dataDir is empty, defaults to ~/.docport/data/index.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docport", "data", "index")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	return &Store{dataDir: dataDir}, nil
}

// Path returns the root data directory.
func (s *Store) Path() string {
	return s.dataDir
}

// OpenOrCreate loads the persisted index for sessionID or initialises an
// empty one. Corrupt or partially written files degrade to an empty
// index with a logged warning; this method only fails on invalid input.
func (s *Store) OpenOrCreate(_ context.Context, sessionID string) (driven.IndexHandle, driven.OpenState, error) {
	if !domain.ValidSessionID(sessionID) {
		return nil, 0, fmt.Errorf("%w: session id %q", domain.ErrConfiguration, sessionID)
	}

	h := newHandle(sessionID, filepath.Join(s.dataDir, sessionID))
	state := h.load()
	logger.Debug("Session %s opened: %s (%d vectors, dim %d)",
		sessionID, state, h.Len(), h.Dimensions())
	return h, state, nil
}

// List returns summaries of all persisted sessions, sorted by id.
// Sessions whose sidecar cannot be read are skipped.
func (s *Store) List(_ context.Context) ([]domain.SessionInfo, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading index directory: %w", err)
	}

	var infos []domain.SessionInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sc, err := readSidecar(filepath.Join(s.dataDir, entry.Name(), sidecarFile))
		if err != nil {
			logger.Debug("Skipping session %s: %v", entry.Name(), err)
			continue
		}
		infos = append(infos, domain.SessionInfo{
			ID:                 entry.Name(),
			Documents:          len(sc.Fingerprints),
			Chunks:             len(sc.Chunks),
			Dimension:          sc.Dimension,
			ContentFingerprint: domain.FingerprintSet(sc.Fingerprints),
			UpdatedAt:          sc.UpdatedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Evict deletes the persisted files for a session.
func (s *Store) Evict(_ context.Context, sessionID string) error {
	if !domain.ValidSessionID(sessionID) {
		return fmt.Errorf("%w: session id %q", domain.ErrConfiguration, sessionID)
	}

	dir := filepath.Join(s.dataDir, sessionID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("evicting session %s: %w", sessionID, err)
	}

	logger.Info("Session %s evicted", sessionID)
	return nil
}

// sidecar is the JSON metadata file accompanying the vector blob.
// It maps internal position to chunk text/source/sequence and carries
// the ingested fingerprint set used for dedup checks.
type sidecar struct {
	Dimension    int         `json:"dimension"`
	Fingerprints []string    `json:"fingerprints"`
	Chunks       []chunkMeta `json:"chunks"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type chunkMeta struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Sequence int    `json:"sequence"`
	Text     string `json:"text"`
}

func readSidecar(path string) (*sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decoding sidecar: %w", err)
	}
	return &sc, nil
}
