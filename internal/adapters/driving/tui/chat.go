// Package tui implements the interactive chat view as a Bubble Tea
// model. It drives the application exclusively through the
// driving.ChatService port.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// answerMsg carries a completed turn back into the update loop.
type answerMsg struct {
	question string
	answer   *driving.Answer
}

// turnErrMsg carries a failed turn; the question is kept so the user
// can retry it.
type turnErrMsg struct {
	question string
	err      error
}

// Model is the Bubble Tea model for the interactive chat.
type Model struct {
	ctx  context.Context
	chat driving.ChatService
	conv *domain.Conversation

	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	status     string
	thinking   bool
	ready      bool
}

// New creates a chat model over an open conversation.
func New(ctx context.Context, chat driving.ChatService, conv *domain.Conversation) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)

	m := Model{
		ctx:      ctx,
		chat:     chat,
		conv:     conv,
		input:    ti,
		viewport: vp,
		status:   "Ready. Esc or Ctrl+C to quit.",
	}
	for _, turn := range conv.Turns {
		m.transcript = append(m.transcript, renderTurn(turn.Question, turn.Answer, turn.Sources, turn.UnsupportedByContext))
	}
	return m
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and turn-result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + ih + 1 // header + input frame + status
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter && !m.thinking {
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.thinking = true
			m.status = "Thinking..."
			return m, m.askCmd(question)
		}

	case answerMsg:
		m.thinking = false
		m.status = "Ready. Esc or Ctrl+C to quit."
		m.transcript = append(m.transcript, renderTurn(
			msg.question, msg.answer.Text, answerSources(msg.answer), msg.answer.UnsupportedByContext))
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case turnErrMsg:
		m.thinking = false
		m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
		m.input.SetValue(msg.question)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("docport chat")
	session := subtleStyle.Render(fmt.Sprintf("session %s, conversation %s", m.conv.SessionID, m.conv.ID))
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	return header + "  " + session + "\n" + transcript + "\n" + input + "\n" + m.status
}

// askCmd runs one turn off the update loop.
func (m Model) askCmd(question string) tea.Cmd {
	ctx, chat, id := m.ctx, m.chat, m.conv.ID
	return func() tea.Msg {
		answer, err := chat.Ask(ctx, id, question)
		if err != nil {
			return turnErrMsg{question: question, err: err}
		}
		return answerMsg{question: question, answer: answer}
	}
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return subtleStyle.Render("No questions yet. The answer will be grounded in the session's documents.")
	}
	return strings.Join(m.transcript, "\n\n")
}

// renderTurn formats one question/answer exchange with its citations.
func renderTurn(question, answer string, sources []string, unsupported bool) string {
	var b strings.Builder
	b.WriteString(questionStyle.Render("You: "+question) + "\n")
	b.WriteString(answer)
	if unsupported {
		b.WriteString("\n" + warnStyle.Render("(not grounded: no relevant passages found)"))
	} else if len(sources) > 0 {
		b.WriteString("\n" + sourceStyle.Render("Sources: "+strings.Join(sources, ", ")))
	}
	return b.String()
}

// answerSources extracts the distinct source names in first-seen order.
func answerSources(answer *driving.Answer) []string {
	seen := make(map[string]struct{}, len(answer.Chunks))
	var names []string
	for _, c := range answer.Chunks {
		if _, ok := seen[c.Chunk.Source]; ok {
			continue
		}
		seen[c.Chunk.Source] = struct{}{}
		names = append(names, c.Chunk.Source)
	}
	return names
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
