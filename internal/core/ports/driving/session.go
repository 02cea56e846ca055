package driving

import (
	"context"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// SessionService manages the lifecycle of persisted session indexes.
type SessionService interface {
	// List returns summaries of all persisted sessions.
	List(ctx context.Context) ([]domain.SessionInfo, error)

	// Evict deletes a session's persisted index and its conversations.
	// Explicit eviction is the only destruction path.
	Evict(ctx context.Context, sessionID string) error
}
