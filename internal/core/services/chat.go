package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultHistoryWindow is the number of most recent turns included in
// the prompt when the config store does not say otherwise.
const DefaultHistoryWindow = 5

// ChatService orchestrates multi-turn grounded question answering.
type ChatService struct {
	retriever     driving.Retriever
	llm           driven.LLMService
	conversations driven.ConversationStore
	prompts       driven.PromptStore
	config        driven.ConfigStore
}

// NewChatService creates a new chat service.
// The config store is optional (can be nil); chat then uses defaults.
func NewChatService(
	retriever driving.Retriever,
	llm driven.LLMService,
	conversations driven.ConversationStore,
	prompts driven.PromptStore,
	config driven.ConfigStore,
) *ChatService {
	return &ChatService{
		retriever:     retriever,
		llm:           llm,
		conversations: conversations,
		prompts:       prompts,
		config:        config,
	}
}

// Open starts a conversation against a session index, or resumes an
// existing one when conversationID is non-empty.
func (s *ChatService) Open(ctx context.Context, sessionID, conversationID string) (*domain.Conversation, error) {
	if conversationID != "" {
		conv, err := s.conversations.Get(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("resuming conversation: %w", err)
		}
		if conv.State == domain.StateEnded {
			return nil, fmt.Errorf("%w: conversation %s has ended", domain.ErrSessionClosed, conversationID)
		}
		logger.Debug("Resumed conversation %s (%d turns)", conv.ID, len(conv.Turns))
		return conv, nil
	}

	if !domain.ValidSessionID(sessionID) {
		return nil, fmt.Errorf("%w: invalid session id %q", domain.ErrInvalidInput, sessionID)
	}

	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		State:     domain.StateAwaitingQuestion,
		StartedAt: time.Now().UTC(),
	}
	if err := s.conversations.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("saving conversation: %w", err)
	}

	logger.Debug("Opened conversation %s for session %s", conv.ID, sessionID)
	return conv, nil
}

// Ask runs one turn: retrieve, assemble prompt, generate, append.
// A generation failure leaves history unchanged and returns a
// retryable domain.ErrGeneration.
func (s *ChatService) Ask(ctx context.Context, conversationID, question string) (*driving.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if conv.State == domain.StateEnded {
		return nil, fmt.Errorf("%w: conversation %s has ended", domain.ErrSessionClosed, conversationID)
	}

	logger.Section("Chat Turn")
	logger.Debug("Conversation %s, question: %q", conversationID, question)

	// Retrieval phase.
	s.setState(ctx, conv, domain.StateRetrieving)

	searchQuery := question
	if s.rewriteEnabled() && len(conv.Turns) > 0 {
		if rewritten, err := s.rewriteQuestion(ctx, conv.Turns, question); err != nil {
			// Rewrite is an optimisation; fall back to the raw question.
			logger.Warn("Question rewrite failed, using raw question: %v", err)
		} else {
			searchQuery = rewritten
			logger.Debug("Rewritten question: %q", searchQuery)
		}
	}

	chunks, err := s.retriever.Retrieve(ctx, conv.SessionID, searchQuery, 0)
	if err != nil {
		s.setState(ctx, conv, domain.StateAwaitingQuestion)
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	unsupported := len(chunks) == 0
	if unsupported {
		logger.Info("No chunk cleared the score floor; answering without grounding")
	}

	// Generation phase.
	s.setState(ctx, conv, domain.StateGenerating)

	messages, err := s.assembleMessages(conv.Turns, chunks, question)
	if err != nil {
		s.setState(ctx, conv, domain.StateAwaitingQuestion)
		return nil, err
	}

	answerText, err := s.llm.Chat(ctx, messages, driven.ChatOptions{})
	s.setState(ctx, conv, domain.StateAwaitingQuestion)
	if err != nil {
		// History stays untouched so the caller can retry the turn.
		if errors.Is(err, domain.ErrGeneration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	turn := domain.Turn{
		Question:             question,
		Answer:               answerText,
		ChunkIDs:             chunkIDs(chunks),
		Sources:              sourceNames(chunks),
		UnsupportedByContext: unsupported,
		AskedAt:              time.Now().UTC(),
	}
	if err := s.conversations.AppendTurn(ctx, conversationID, turn); err != nil {
		return nil, fmt.Errorf("appending turn: %w", err)
	}

	return &driving.Answer{
		Text:                 answerText,
		Chunks:               chunks,
		UnsupportedByContext: unsupported,
	}, nil
}

// History returns the conversation's turns in order.
func (s *ChatService) History(ctx context.Context, conversationID string) ([]domain.Turn, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return conv.Turns, nil
}

// End moves the conversation to its terminal state.
func (s *ChatService) End(ctx context.Context, conversationID string) error {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	conv.State = domain.StateEnded
	if err := s.conversations.Save(ctx, conv); err != nil {
		return fmt.Errorf("ending conversation: %w", err)
	}
	logger.Debug("Ended conversation %s", conversationID)
	return nil
}

// setState persists a state transition. Transitions are advisory
// bookkeeping; a persistence failure must not abort the turn.
func (s *ChatService) setState(ctx context.Context, conv *domain.Conversation, state domain.ConversationState) {
	conv.State = state
	if err := s.conversations.Save(ctx, conv); err != nil {
		logger.Warn("Saving conversation state: %v", err)
	}
}

// rewriteQuestion asks the model to fold conversation history into the
// question so retrieval sees a standalone query.
func (s *ChatService) rewriteQuestion(ctx context.Context, turns []domain.Turn, question string) (string, error) {
	template, err := s.prompts.Load(driven.PromptContextualize)
	if err != nil {
		return "", err
	}

	history := formatHistory(s.windowed(turns))
	prompt := fmt.Sprintf(template, history, question)

	rewritten, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   200,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return "", fmt.Errorf("%w: empty rewrite", domain.ErrGeneration)
	}
	return rewritten, nil
}

// assembleMessages builds the chat transcript: system prompt, the
// sliding window of past turns, and the context-framed question.
func (s *ChatService) assembleMessages(
	turns []domain.Turn, chunks []domain.ScoredChunk, question string,
) ([]driven.ChatMessage, error) {
	system, err := s.prompts.Load(driven.PromptChatSystem)
	if err != nil {
		return nil, fmt.Errorf("loading system prompt: %w", err)
	}
	qaTemplate, err := s.prompts.Load(driven.PromptContextQA)
	if err != nil {
		return nil, fmt.Errorf("loading qa prompt: %w", err)
	}

	messages := []driven.ChatMessage{{Role: "system", Content: system}}
	for _, turn := range s.windowed(turns) {
		messages = append(messages,
			driven.ChatMessage{Role: "user", Content: turn.Question},
			driven.ChatMessage{Role: "assistant", Content: turn.Answer},
		)
	}

	messages = append(messages, driven.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf(qaTemplate, formatContext(chunks), question),
	})
	return messages, nil
}

// windowed returns the last N turns per configuration.
func (s *ChatService) windowed(turns []domain.Turn) []domain.Turn {
	window := DefaultHistoryWindow
	if s.config != nil {
		if v := s.config.GetInt(driven.ConfigHistoryWindow); v > 0 {
			window = v
		}
	}
	if len(turns) <= window {
		return turns
	}
	return turns[len(turns)-window:]
}

// rewriteEnabled reports whether history-aware question rewriting is on.
func (s *ChatService) rewriteEnabled() bool {
	return s.config != nil && s.config.GetBool(driven.ConfigRewriteQuestions)
}

// formatHistory renders turns as alternating QA lines for the rewrite prompt.
func formatHistory(turns []domain.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Question, turn.Answer)
	}
	return strings.TrimSpace(b.String())
}

// formatContext renders retrieved chunks with their source names.
func formatContext(chunks []domain.ScoredChunk) string {
	if len(chunks) == 0 {
		return "(no relevant context found in the session's documents)"
	}
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, c.Chunk.Source, c.Chunk.Text)
	}
	return strings.TrimSpace(b.String())
}

// chunkIDs extracts chunk ids in score order.
func chunkIDs(chunks []domain.ScoredChunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Chunk.ID
	}
	return ids
}

// sourceNames extracts the distinct source names behind the chunks.
func sourceNames(chunks []domain.ScoredChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var names []string
	for _, c := range chunks {
		if _, ok := seen[c.Chunk.Source]; ok {
			continue
		}
		seen[c.Chunk.Source] = struct{}{}
		names = append(names, c.Chunk.Source)
	}
	sort.Strings(names)
	return names
}
