// Package memory provides in-memory implementations of driven port
// interfaces, used for tests and ephemeral sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]domain.Conversation),
	}
}

// Save creates or updates conversation metadata. Existing turns survive
// a metadata update.
func (s *ConversationStore) Save(_ context.Context, conv *domain.Conversation) error {
	if conv.ID == "" || conv.SessionID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *conv
	if existing, ok := s.conversations[conv.ID]; ok {
		stored.Turns = existing.Turns
		stored.StartedAt = existing.StartedAt
	} else {
		stored.Turns = append([]domain.Turn(nil), conv.Turns...)
	}
	s.conversations[conv.ID] = stored
	return nil
}

// Get returns the conversation with its turns in order.
func (s *ConversationStore) Get(_ context.Context, conversationID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	out := conv
	out.Turns = append([]domain.Turn(nil), conv.Turns...)
	return &out, nil
}

// ListBySession returns all conversations for a session, most recent first.
func (s *ConversationStore) ListBySession(_ context.Context, sessionID string) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []domain.Conversation
	for _, conv := range s.conversations {
		if conv.SessionID != sessionID {
			continue
		}
		out := conv
		out.Turns = append([]domain.Turn(nil), conv.Turns...)
		convs = append(convs, out)
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].StartedAt.After(convs[j].StartedAt)
	})

	return convs, nil
}

// AppendTurn appends a completed turn to the conversation.
func (s *ConversationStore) AppendTurn(_ context.Context, conversationID string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return domain.ErrNotFound
	}

	conv.Turns = append(conv.Turns, turn)
	s.conversations[conversationID] = conv
	return nil
}

// DeleteBySession removes all conversations for a session.
func (s *ConversationStore) DeleteBySession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, conv := range s.conversations {
		if conv.SessionID == sessionID {
			delete(s.conversations, id)
		}
	}
	return nil
}

// Close releases resources.
func (s *ConversationStore) Close() error {
	return nil
}
