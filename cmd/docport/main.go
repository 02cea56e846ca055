// Command docport is a session-scoped document indexing and grounded
// question answering tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/docport-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/docport-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docport-cli/internal/adapters/driven/index/flat"
	"github.com/custodia-labs/docport-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docport-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docport-cli/internal/core/services"
	"github.com/custodia-labs/docport-cli/internal/extractors"
	"github.com/custodia-labs/docport-cli/internal/extractors/docx"
	"github.com/custodia-labs/docport-cli/internal/extractors/markdown"
	"github.com/custodia-labs/docport-cli/internal/extractors/pdf"
	"github.com/custodia-labs/docport-cli/internal/extractors/plaintext"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("initialising config store: %w", err)
	}

	promptStore, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("initialising prompt store: %w", err)
	}
	// Pick up prompt edits while long-running commands (chat) are open.
	go func() {
		if err := promptStore.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Prompt watcher stopped: %v", err)
		}
	}()

	dataDir := configStore.GetString(driven.ConfigDataDir)
	indexDir := ""
	if dataDir != "" {
		indexDir = filepath.Join(dataDir, "index")
	}

	indexStore, err := flat.NewStore(indexDir)
	if err != nil {
		return fmt.Errorf("initialising index store: %w", err)
	}

	metaStore, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("initialising metadata store: %w", err)
	}
	defer metaStore.Close()
	conversations := metaStore.ConversationStore()

	registry := services.NewRegistry(indexStore, 0)
	defer registry.Close()

	extractorRegistry := extractors.NewRegistry(
		plaintext.New(),
		markdown.New(),
		pdf.New(),
		docx.New(),
	)

	// AI-backed services are wired only when a provider is configured;
	// the commands that need them report how to configure otherwise.
	var (
		ingestService  driving.IngestService
		retrieverSvc   driving.Retriever
		chatService    driving.ChatService
		compareService driving.CompareService
	)

	if embSettings := ai.EmbeddingSettingsFromConfig(configStore); embSettings.IsConfigured() {
		embedder, err := ai.CreateEmbeddingService(embSettings)
		if err != nil {
			return fmt.Errorf("creating embedding service: %w", err)
		}
		defer embedder.Close()

		ingestService = services.NewIngestService(registry, extractorRegistry, embedder, configStore)
		retrieverSvc = services.NewRetrieverService(registry, embedder, configStore)
	}

	if llmSettings := ai.LLMSettingsFromConfig(configStore); llmSettings.IsConfigured() {
		llm, err := ai.CreateLLMService(llmSettings)
		if err != nil {
			return fmt.Errorf("creating LLM service: %w", err)
		}
		defer llm.Close()

		compareService = services.NewCompareService(extractorRegistry, llm, promptStore)
		if retrieverSvc != nil {
			chatService = services.NewChatService(retrieverSvc, llm, conversations, promptStore, configStore)
		}
	}

	sessionService := services.NewSessionManager(registry, indexStore, conversations)

	cli.SetServices(&cli.Services{
		Ingest:   ingestService,
		Retrieve: retrieverSvc,
		Chat:     chatService,
		Compare:  compareService,
		Session:  sessionService,
		Config:   configStore,
	})

	return cli.Execute(ctx)
}
