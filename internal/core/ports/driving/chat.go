package driving

import (
	"context"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

// Answer is the result of one conversational turn.
type Answer struct {
	// Text is the model's answer.
	Text string

	// Chunks are the retrieved chunks the answer is grounded in,
	// in score order.
	Chunks []domain.ScoredChunk

	// UnsupportedByContext is set when no chunk cleared the score floor;
	// the answer was still generated but may be unfounded.
	UnsupportedByContext bool
}

// ChatService orchestrates multi-turn grounded question answering.
type ChatService interface {
	// Open starts a conversation against a session index, or resumes an
	// existing one when conversationID is non-empty.
	Open(ctx context.Context, sessionID, conversationID string) (*domain.Conversation, error)

	// Ask runs one turn: retrieve, assemble prompt, generate, append.
	// A generation failure leaves history unchanged and returns a
	// retryable domain.ErrGeneration.
	Ask(ctx context.Context, conversationID, question string) (*Answer, error)

	// History returns the conversation's turns in order.
	History(ctx context.Context, conversationID string) ([]domain.Turn, error)

	// End moves the conversation to its terminal state.
	End(ctx context.Context, conversationID string) error
}

// Retriever produces the top-k relevant chunks for a query against a
// session index. Exposed as a driving port so callers can inspect raw
// retrieval without a conversation.
type Retriever interface {
	// Retrieve embeds the query and searches the session index.
	// Results below the configured score floor are dropped.
	Retrieve(ctx context.Context, sessionID, query string, k int) ([]domain.ScoredChunk, error)
}
