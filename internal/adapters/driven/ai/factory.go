// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docport-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docport-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docport-cli/internal/adapters/driven/embedding/ratelimit"
	anthropicllm "github.com/custodia-labs/docport-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docport-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docport-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docport-cli/internal/core/domain"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// EmbeddingSettingsFromConfig reads embedding provider settings from the
// config store.
func EmbeddingSettingsFromConfig(cfg driven.ConfigStore) domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider:          domain.AIProvider(cfg.GetString(driven.ConfigEmbeddingProvider)),
		Model:             cfg.GetString(driven.ConfigEmbeddingModel),
		BaseURL:           cfg.GetString(driven.ConfigEmbeddingBaseURL),
		APIKey:            cfg.GetString(driven.ConfigEmbeddingAPIKey),
		RequestsPerSecond: cfg.GetFloat(driven.ConfigEmbeddingRPS),
	}
}

// LLMSettingsFromConfig reads LLM provider settings from the config store.
func LLMSettingsFromConfig(cfg driven.ConfigStore) domain.LLMSettings {
	return domain.LLMSettings{
		Provider: domain.AIProvider(cfg.GetString(driven.ConfigLLMProvider)),
		Model:    cfg.GetString(driven.ConfigLLMModel),
		BaseURL:  cfg.GetString(driven.ConfigLLMBaseURL),
		APIKey:   cfg.GetString(driven.ConfigLLMAPIKey),
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates
// connectivity. Returns an error with guidance when misconfigured or unreachable.
func CreateAndValidateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docport config set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docport config set' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns an error with guidance when misconfigured or unreachable.
func CreateAndValidateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'docport config set' to fix",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'docport config set' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on
// settings. When a request rate is configured, the service is wrapped in a
// token-bucket limiter.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider not configured", domain.ErrConfiguration)
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	if settings.RequestsPerSecond > 0 {
		svc = ratelimit.Wrap(svc, settings.RequestsPerSecond, 0)
	}

	return svc, nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
func CreateLLMService(settings domain.LLMSettings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: LLM provider not configured", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
