package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage docport configuration",
	Long: `View and change configuration: chunking, retrieval, chat behaviour
and AI provider settings.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration value and saves it immediately.

Known keys:
  ingest.chunk_size                 chunk size in characters
  ingest.chunk_overlap              overlap between adjacent chunks
  retrieval.top_k                   chunks retrieved per question
  retrieval.score_floor             minimum similarity score (0 disables)
  chat.history_window               turns included in the prompt
  chat.rewrite_questions            rewrite follow-ups before retrieval
  storage.data_dir                  session index directory
  ai.embedding.provider             ollama or openai
  ai.embedding.model                embedding model name
  ai.embedding.base_url             embedding endpoint override
  ai.embedding.requests_per_second  embedding request throttle
  ai.llm.provider                   ollama, openai or anthropic
  ai.llm.model                      LLM model name
  ai.llm.base_url                   LLM endpoint override

Values are parsed as bool, int or float where possible, string otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [embedding|llm]",
	Short: "Set a provider API key without echoing it",
	Long:  `Prompts for the API key with terminal echo disabled and saves it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetKey,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Printf("Configuration (%s)\n\n", configStore.Path())

	cmd.Println("[Ingestion]")
	printOr(cmd, "  Chunk size: ", configStore, driven.ConfigChunkSize, "1000 (default)")
	printOr(cmd, "  Chunk overlap: ", configStore, driven.ConfigChunkOverlap, "200 (default)")
	cmd.Println()

	cmd.Println("[Retrieval]")
	printOr(cmd, "  Top-k: ", configStore, driven.ConfigTopK, "5 (default)")
	printOr(cmd, "  Score floor: ", configStore, driven.ConfigScoreFloor, "0.5 (default)")
	cmd.Println()

	cmd.Println("[Chat]")
	printOr(cmd, "  History window: ", configStore, driven.ConfigHistoryWindow, "5 (default)")
	printOr(cmd, "  Rewrite questions: ", configStore, driven.ConfigRewriteQuestions, "false (default)")
	cmd.Println()

	cmd.Println("[Embedding]")
	printOr(cmd, "  Provider: ", configStore, driven.ConfigEmbeddingProvider, "(not set)")
	printOr(cmd, "  Model: ", configStore, driven.ConfigEmbeddingModel, "(provider default)")
	printAPIKey(cmd, configStore.GetString(driven.ConfigEmbeddingAPIKey))
	cmd.Println()

	cmd.Println("[LLM]")
	printOr(cmd, "  Provider: ", configStore, driven.ConfigLLMProvider, "(not set)")
	printOr(cmd, "  Model: ", configStore, driven.ConfigLLMModel, "(provider default)")
	printAPIKey(cmd, configStore.GetString(driven.ConfigLLMAPIKey))

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	if err := configStore.Set(key, parseValue(raw)); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	cmd.Printf("Set %s = %s\n", key, raw)
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	var key string
	switch args[0] {
	case "embedding":
		key = driven.ConfigEmbeddingAPIKey
	case "llm":
		key = driven.ConfigLLMAPIKey
	default:
		return fmt.Errorf("unknown target %q: use 'embedding' or 'llm'", args[0])
	}

	cmd.Print("Enter API key: ")
	apiKey := readPassword()
	cmd.Println()
	if apiKey == "" {
		return errors.New("no API key entered")
	}

	if err := configStore.Set(key, apiKey); err != nil {
		return fmt.Errorf("setting API key: %w", err)
	}
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	cmd.Printf("Saved %s API key (%s)\n", args[0], maskAPIKey(apiKey))
	return nil
}

// printOr prints the stored value for key, or the fallback when unset.
func printOr(cmd *cobra.Command, label string, store driven.ConfigStore, key, fallback string) {
	if v, ok := store.Get(key); ok {
		cmd.Printf("%s%v\n", label, v)
		return
	}
	cmd.Printf("%s%s\n", label, fallback)
}

func printAPIKey(cmd *cobra.Command, apiKey string) {
	if apiKey == "" {
		cmd.Println("  API Key: (not set)")
		return
	}
	cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
}

// parseValue converts a raw CLI string into the most specific type.
// Numbers are tried before bools so "1" stores as an int, not true.
func parseValue(raw string) any {
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// maskAPIKey shows only the last four characters of a key.
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + apiKey[len(apiKey)-4:]
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
