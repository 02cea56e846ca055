package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docport-cli/internal/adapters/driven/index/flat"
	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

// --- Test fakes ---

// fakeEmbedder produces deterministic bag-of-words embeddings: texts
// sharing tokens get similar vectors. Good enough to test retrieval
// ordering without a real model.
type fakeEmbedder struct {
	dims       int
	embedErr   error
	batchErr   error
	batchCalls int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: 32}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return f.dims }
func (f *fakeEmbedder) ModelName() string            { return "fake-bow" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, f.dims)
	for _, token := range tokenise(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		v[h.Sum32()%uint32(f.dims)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}

func tokenise(text string) []string {
	var tokens []string
	var current []rune
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '$':
			current = append(current, r)
		case r >= 'A' && r <= 'Z':
			current = append(current, r+('a'-'A'))
		default:
			if len(current) > 0 {
				tokens = append(tokens, string(current))
				current = nil
			}
		}
	}
	if len(current) > 0 {
		tokens = append(tokens, string(current))
	}
	return tokens
}

// fakeLLM returns canned responses and records what it was asked.
type fakeLLM struct {
	response      string
	generateErr   error
	chatErr       error
	generateCalls int
	chatCalls     int
	lastPrompt    string
	lastMessages  []driven.ChatMessage
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	f.generateCalls++
	f.lastPrompt = prompt
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.response, nil
}

func (f *fakeLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	f.chatCalls++
	f.lastMessages = messages
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.response, nil
}

func (f *fakeLLM) ModelName() string            { return "fake-llm" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

// fakePromptStore serves minimal templates without touching disk.
type fakePromptStore struct{}

func (fakePromptStore) Load(name string) (string, error) {
	switch name {
	case driven.PromptChatSystem:
		return "Answer from the context only.", nil
	case driven.PromptContextualize:
		return "History:\n%s\nFollow-up: %s\nStandalone:", nil
	case driven.PromptContextQA:
		return "Context:\n%s\nQuestion: %s", nil
	case driven.PromptDocumentComparison:
		return "Compare:\n%s", nil
	default:
		return "", fmt.Errorf("unknown prompt %q", name)
	}
}

func (fakePromptStore) Reload() {}

// newTestRegistry creates a registry over a flat index store rooted in
// a temp directory.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store := newTestIndexStore(t)
	return NewRegistry(store, 0)
}

func newTestIndexStore(t *testing.T) *flat.Store {
	t.Helper()
	store, err := flat.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

// textDoc builds a plain-text document.
func textDoc(name, content string) domain.Document {
	return domain.Document{
		Name:      name,
		MediaType: "text/plain",
		Content:   []byte(content),
	}
}
