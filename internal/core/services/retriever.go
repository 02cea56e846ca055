package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.Retriever = (*RetrieverService)(nil)

// Default retrieval parameters, matching the configuration defaults.
const (
	DefaultTopK       = 5
	DefaultScoreFloor = 0.5
)

// RetrieverService embeds queries and searches session indexes.
type RetrieverService struct {
	registry *Registry
	embedder driven.EmbeddingService
	config   driven.ConfigStore
}

// NewRetrieverService creates a new retriever.
// The config store is optional (can be nil); retrieval then uses defaults.
func NewRetrieverService(
	registry *Registry,
	embedder driven.EmbeddingService,
	config driven.ConfigStore,
) *RetrieverService {
	return &RetrieverService{
		registry: registry,
		embedder: embedder,
		config:   config,
	}
}

// Retrieve embeds the query and searches the session index.
// Results below the configured score floor are dropped. k <= 0 selects
// the configured (or default) top-k.
func (s *RetrieverService) Retrieve(
	ctx context.Context, sessionID, query string, k int,
) ([]domain.ScoredChunk, error) {
	if !domain.ValidSessionID(sessionID) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, sessionID)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = s.topK()
	}

	handle, _, err := s.registry.Handle(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("opening session index: %w", err)
	}
	if handle.Len() == 0 {
		logger.Debug("Session %s index is empty", sessionID)
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if dim := handle.Dimensions(); dim != 0 && len(vector) != dim {
		return nil, fmt.Errorf(
			"%w: query embeds to %d dimensions but session %s was indexed with %d; "+
				"the embedding model changed since ingestion",
			domain.ErrConfiguration, len(vector), sessionID, dim)
	}

	results, err := handle.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching session index: %w", err)
	}

	floor := s.scoreFloor()
	if floor > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= floor {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	logger.Debug("Retrieved %d chunks for session %s (floor %.2f)", len(results), sessionID, floor)
	return results, nil
}

// topK returns the configured result count, or the default.
func (s *RetrieverService) topK() int {
	if s.config != nil {
		if v := s.config.GetInt(driven.ConfigTopK); v > 0 {
			return v
		}
	}
	return DefaultTopK
}

// scoreFloor returns the configured similarity floor, or the default.
// An explicit zero disables the floor.
func (s *RetrieverService) scoreFloor() float64 {
	if s.config != nil {
		if _, ok := s.config.Get(driven.ConfigScoreFloor); ok {
			return s.config.GetFloat(driven.ConfigScoreFloor)
		}
	}
	return DefaultScoreFloor
}
