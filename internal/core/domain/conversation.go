package domain

import "time"

// ConversationState tracks where a conversation is in its turn cycle.
type ConversationState int

const (
	// StateAwaitingQuestion means the conversation is idle and ready
	// for the next question.
	StateAwaitingQuestion ConversationState = iota

	// StateRetrieving means a question is being matched against the index.
	StateRetrieving

	// StateGenerating means the language model is producing an answer.
	StateGenerating

	// StateEnded is terminal; only explicit close reaches it.
	StateEnded
)

// String returns a human-readable name for the state.
func (s ConversationState) String() string {
	switch s {
	case StateAwaitingQuestion:
		return "awaiting_question"
	case StateRetrieving:
		return "retrieving"
	case StateGenerating:
		return "generating"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Turn is one question/answer exchange within a conversation.
// Turns are append-only: history is never reordered or mutated.
type Turn struct {
	// Question is the user's question as asked.
	Question string

	// Answer is the model's answer.
	Answer string

	// ChunkIDs are the ids of the chunks retrieved for this turn,
	// in score order. They make the answer traceable to its sources.
	ChunkIDs []string

	// Sources are the distinct source document names behind ChunkIDs.
	Sources []string

	// UnsupportedByContext is set when no chunk cleared the score floor
	// for this turn. The answer was still generated but may be unfounded.
	UnsupportedByContext bool

	// AskedAt is when the question was received.
	AskedAt time.Time
}

// Conversation is an ordered sequence of turns scoped to one session index.
// Many conversations may query the same session index.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string

	// SessionID identifies the index this conversation is grounded in.
	SessionID string

	// State is the current position in the turn cycle.
	State ConversationState

	// Turns is the append-only exchange history.
	Turns []Turn

	// StartedAt is when the conversation was created.
	StartedAt time.Time
}
