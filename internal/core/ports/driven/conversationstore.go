package driven

import (
	"context"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// ConversationStore persists conversation history per session.
// Turns are append-only; stored history is never rewritten.
type ConversationStore interface {
	// Save creates or updates conversation metadata.
	Save(ctx context.Context, conv *domain.Conversation) error

	// Get returns the conversation with its turns in order.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, conversationID string) (*domain.Conversation, error)

	// ListBySession returns all conversations for a session,
	// most recent first.
	ListBySession(ctx context.Context, sessionID string) ([]domain.Conversation, error)

	// AppendTurn appends a completed turn to the conversation.
	AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error

	// DeleteBySession removes all conversations for a session.
	// Called when the session index is evicted.
	DeleteBySession(ctx context.Context, sessionID string) error

	// Close releases resources.
	Close() error
}
