package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
)

type fakeChat struct {
	answer *driving.Answer
	askErr error
	asked  []string
}

func (f *fakeChat) Open(_ context.Context, sessionID, conversationID string) (*domain.Conversation, error) {
	return &domain.Conversation{ID: conversationID, SessionID: sessionID}, nil
}

func (f *fakeChat) Ask(_ context.Context, _, question string) (*driving.Answer, error) {
	f.asked = append(f.asked, question)
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.answer, nil
}

func (f *fakeChat) History(_ context.Context, _ string) ([]domain.Turn, error) { return nil, nil }
func (f *fakeChat) End(_ context.Context, _ string) error                     { return nil }

func testConversation() *domain.Conversation {
	return &domain.Conversation{
		ID:        "conv-1",
		SessionID: "session-a",
		State:     domain.StateAwaitingQuestion,
	}
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func TestNewShowsExistingTurns(t *testing.T) {
	conv := testConversation()
	conv.Turns = []domain.Turn{
		{Question: "what is the budget?", Answer: "$500", Sources: []string{"budget.txt"}},
	}

	m := sized(New(context.Background(), &fakeChat{}, conv))

	view := m.View()
	assert.Contains(t, view, "what is the budget?")
	assert.Contains(t, view, "$500")
	assert.Contains(t, view, "budget.txt")
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := New(context.Background(), &fakeChat{}, testConversation())
	assert.Equal(t, "Loading...", m.View())
}

func TestEnterSubmitsQuestion(t *testing.T) {
	chat := &fakeChat{answer: &driving.Answer{Text: "answer"}}
	m := sized(New(context.Background(), chat, testConversation()))
	m.input.SetValue("what is the budget?")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	require.NotNil(t, cmd)
	assert.True(t, m.thinking)
	assert.Empty(t, m.input.Value())

	// The command runs the turn and reports back.
	msg := cmd()
	result, ok := msg.(answerMsg)
	require.True(t, ok)
	assert.Equal(t, "what is the budget?", result.question)
	assert.Equal(t, []string{"what is the budget?"}, chat.asked)
}

func TestEnterIgnoresEmptyInput(t *testing.T) {
	m := sized(New(context.Background(), &fakeChat{}, testConversation()))
	m.input.SetValue("   ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Nil(t, cmd)
	assert.False(t, m.thinking)
}

func TestEnterIgnoredWhileThinking(t *testing.T) {
	chat := &fakeChat{answer: &driving.Answer{Text: "answer"}}
	m := sized(New(context.Background(), chat, testConversation()))
	m.thinking = true
	m.input.SetValue("impatient follow-up")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	// No new turn starts while one is in flight.
	assert.Empty(t, chat.asked)
	assert.True(t, m.thinking)
}

func TestAnswerMsgAppendsToTranscript(t *testing.T) {
	m := sized(New(context.Background(), &fakeChat{}, testConversation()))
	m.thinking = true

	updated, _ := m.Update(answerMsg{
		question: "what is the budget?",
		answer: &driving.Answer{
			Text: "The budget is $500.",
			Chunks: []domain.ScoredChunk{
				{Chunk: domain.Chunk{ID: "c1", Source: "budget.txt"}, Score: 0.9},
			},
		},
	})
	m = updated.(Model)

	assert.False(t, m.thinking)
	view := m.View()
	assert.Contains(t, view, "The budget is $500.")
	assert.Contains(t, view, "budget.txt")
}

func TestAnswerMsgFlagsUngroundedTurn(t *testing.T) {
	m := sized(New(context.Background(), &fakeChat{}, testConversation()))

	updated, _ := m.Update(answerMsg{
		question: "unrelated question",
		answer:   &driving.Answer{Text: "I don't know.", UnsupportedByContext: true},
	})
	m = updated.(Model)

	assert.Contains(t, m.View(), "not grounded")
}

func TestTurnErrRestoresQuestion(t *testing.T) {
	m := sized(New(context.Background(), &fakeChat{}, testConversation()))
	m.thinking = true

	updated, _ := m.Update(turnErrMsg{question: "retry me", err: errors.New("model overloaded")})
	m = updated.(Model)

	assert.False(t, m.thinking)
	assert.Equal(t, "retry me", m.input.Value())
	assert.Contains(t, m.status, "model overloaded")
}

func TestEscQuits(t *testing.T) {
	m := sized(New(context.Background(), &fakeChat{}, testConversation()))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderTurnFormatsSources(t *testing.T) {
	out := renderTurn("q", "a", []string{"x.txt", "y.txt"}, false)
	assert.Contains(t, out, "q")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "x.txt, y.txt")
	assert.False(t, strings.Contains(out, "not grounded"))
}
