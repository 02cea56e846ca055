package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docport-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

// fakeRetriever serves canned chunks and records the query it was
// asked, so rewrite wiring can be observed.
type fakeRetriever struct {
	chunks    []domain.ScoredChunk
	err       error
	lastQuery string
	calls     int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, query string, _ int) ([]domain.ScoredChunk, error) {
	f.calls++
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func scored(id, source, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{ID: id, Source: source, Text: text},
		Score: score,
	}
}

func newTestChatService(retriever *fakeRetriever, llm *fakeLLM, config driven.ConfigStore) (*ChatService, *memory.ConversationStore) {
	conversations := memory.NewConversationStore()
	svc := NewChatService(retriever, llm, conversations, fakePromptStore{}, config)
	return svc, conversations
}

func TestChatOpenCreatesConversation(t *testing.T) {
	svc, conversations := newTestChatService(&fakeRetriever{}, &fakeLLM{}, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "session-a", conv.SessionID)
	assert.Equal(t, domain.StateAwaitingQuestion, conv.State)

	// The conversation is persisted immediately.
	stored, err := conversations.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.SessionID, stored.SessionID)
}

func TestChatOpenResumesConversation(t *testing.T) {
	svc, _ := newTestChatService(&fakeRetriever{}, &fakeLLM{response: "answer"}, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)
	_, err = svc.Ask(ctx, conv.ID, "first question")
	require.NoError(t, err)

	resumed, err := svc.Open(ctx, "", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, resumed.ID)
	assert.Len(t, resumed.Turns, 1)
}

func TestChatOpenRejectsEndedConversation(t *testing.T) {
	svc, _ := newTestChatService(&fakeRetriever{}, &fakeLLM{}, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, conv.ID))

	_, err = svc.Open(ctx, "", conv.ID)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestChatAskAppendsTurn(t *testing.T) {
	retriever := &fakeRetriever{chunks: []domain.ScoredChunk{
		scored("chunk-1", "budget.txt", "the budget is $500", 0.91),
		scored("chunk-2", "budget.txt", "travel is covered", 0.72),
		scored("chunk-3", "agenda.txt", "day one schedule", 0.61),
	}}
	llm := &fakeLLM{response: "The budget is $500."}
	svc, _ := newTestChatService(retriever, llm, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)

	answer, err := svc.Ask(ctx, conv.ID, "what is the budget?")
	require.NoError(t, err)
	assert.Equal(t, "The budget is $500.", answer.Text)
	assert.Len(t, answer.Chunks, 3)
	assert.False(t, answer.UnsupportedByContext)

	turns, err := svc.History(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "what is the budget?", turns[0].Question)
	assert.Equal(t, []string{"chunk-1", "chunk-2", "chunk-3"}, turns[0].ChunkIDs)
	assert.Equal(t, []string{"agenda.txt", "budget.txt"}, turns[0].Sources)
}

func TestChatAskWithoutContext(t *testing.T) {
	// No chunk cleared the floor; the turn still generates but is
	// flagged as unsupported.
	svc, _ := newTestChatService(&fakeRetriever{}, &fakeLLM{response: "I don't know."}, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)

	answer, err := svc.Ask(ctx, conv.ID, "what is the budget?")
	require.NoError(t, err)
	assert.True(t, answer.UnsupportedByContext)

	turns, err := svc.History(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.True(t, turns[0].UnsupportedByContext)
	assert.Empty(t, turns[0].ChunkIDs)
}

func TestChatAskGenerationFailureLeavesHistoryUnchanged(t *testing.T) {
	llm := &fakeLLM{chatErr: errors.New("model overloaded")}
	svc, conversations := newTestChatService(&fakeRetriever{}, llm, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)

	_, err = svc.Ask(ctx, conv.ID, "question")
	require.ErrorIs(t, err, domain.ErrGeneration)

	turns, err := svc.History(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	// The conversation is back to accepting questions for a retry.
	stored, err := conversations.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingQuestion, stored.State)
}

func TestChatAskRejectsEmptyQuestion(t *testing.T) {
	svc, _ := newTestChatService(&fakeRetriever{}, &fakeLLM{}, nil)

	_, err := svc.Ask(context.Background(), "any-id", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatAskRejectsEndedConversation(t *testing.T) {
	svc, _ := newTestChatService(&fakeRetriever{}, &fakeLLM{}, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, conv.ID))

	_, err = svc.Ask(ctx, conv.ID, "question")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestChatAskUnknownConversation(t *testing.T) {
	svc, _ := newTestChatService(&fakeRetriever{}, &fakeLLM{}, nil)

	_, err := svc.Ask(context.Background(), "no-such-conversation", "question")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatHistoryWindowBoundsPrompt(t *testing.T) {
	config := memory.NewConfigStore()
	require.NoError(t, config.Set(driven.ConfigHistoryWindow, 2))

	llm := &fakeLLM{response: "answer"}
	svc, _ := newTestChatService(&fakeRetriever{}, llm, config)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.Ask(ctx, conv.ID, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	// system + 2 windowed turns (user/assistant each) + current question.
	require.Len(t, llm.lastMessages, 6)
	assert.Equal(t, "system", llm.lastMessages[0].Role)
	assert.Equal(t, "question 1", llm.lastMessages[1].Content)
	assert.Equal(t, "question 2", llm.lastMessages[3].Content)
}

func TestChatAskRewritesFollowUpQuestions(t *testing.T) {
	config := memory.NewConfigStore()
	require.NoError(t, config.Set(driven.ConfigRewriteQuestions, true))

	retriever := &fakeRetriever{}
	llm := &fakeLLM{response: "what is the travel budget?"}
	svc, _ := newTestChatService(retriever, llm, config)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)

	// First turn has no history, so no rewrite happens.
	_, err = svc.Ask(ctx, conv.ID, "what is the travel budget?")
	require.NoError(t, err)
	assert.Equal(t, "what is the travel budget?", retriever.lastQuery)
	assert.Zero(t, llm.generateCalls)

	// The follow-up is rewritten before retrieval.
	llm.response = "what is the travel budget for next year?"
	_, err = svc.Ask(ctx, conv.ID, "and for next year?")
	require.NoError(t, err)
	assert.Equal(t, 1, llm.generateCalls)
	assert.Equal(t, "what is the travel budget for next year?", retriever.lastQuery)
	assert.Contains(t, llm.lastPrompt, "what is the travel budget?")
}

func TestChatAskRewriteFailureFallsBack(t *testing.T) {
	config := memory.NewConfigStore()
	require.NoError(t, config.Set(driven.ConfigRewriteQuestions, true))

	retriever := &fakeRetriever{}
	llm := &fakeLLM{response: "answer", generateErr: errors.New("rewrite down")}
	svc, _ := newTestChatService(retriever, llm, config)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)
	_, err = svc.Ask(ctx, conv.ID, "first question")
	require.NoError(t, err)

	_, err = svc.Ask(ctx, conv.ID, "and then?")
	require.NoError(t, err)
	assert.Equal(t, "and then?", retriever.lastQuery)
}

func TestChatEnd(t *testing.T) {
	svc, conversations := newTestChatService(&fakeRetriever{}, &fakeLLM{}, nil)
	ctx := context.Background()

	conv, err := svc.Open(ctx, "session-a", "")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, conv.ID))

	stored, err := conversations.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateEnded, stored.State)
}
