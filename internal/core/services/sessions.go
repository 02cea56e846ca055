package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// SessionManager manages the lifecycle of persisted session indexes.
type SessionManager struct {
	registry      *Registry
	store         driven.IndexStore
	conversations driven.ConversationStore
}

// NewSessionManager creates a new session manager.
// The conversation store is optional (can be nil); eviction then only
// removes index files.
func NewSessionManager(
	registry *Registry,
	store driven.IndexStore,
	conversations driven.ConversationStore,
) *SessionManager {
	return &SessionManager{
		registry:      registry,
		store:         store,
		conversations: conversations,
	}
}

// List returns summaries of all persisted sessions.
func (s *SessionManager) List(ctx context.Context) ([]domain.SessionInfo, error) {
	infos, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return infos, nil
}

// Evict deletes a session's persisted index and its conversations.
// Explicit eviction is the only destruction path.
func (s *SessionManager) Evict(ctx context.Context, sessionID string) error {
	if !domain.ValidSessionID(sessionID) {
		return fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, sessionID)
	}

	// Serialise against in-flight ingestion for the same session.
	lock := s.registry.Lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	// Drop the cached handle first so nothing can re-persist the files.
	s.registry.Forget(sessionID)

	if err := s.store.Evict(ctx, sessionID); err != nil {
		return fmt.Errorf("evicting session %s: %w", sessionID, err)
	}

	if s.conversations != nil {
		if err := s.conversations.DeleteBySession(ctx, sessionID); err != nil {
			// Index files are already gone; orphaned history is a warning,
			// not a failed eviction.
			logger.Warn("Deleting conversations for session %s: %v", sessionID, err)
		}
	}

	logger.Info("Evicted session %s", sessionID)
	return nil
}
