package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askSession     string
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question against a session",
	Long: `Retrieves the most relevant chunks from the session's index and
answers the question grounded in them. Sources are cited below the
answer. The turn is recorded in a fresh conversation that is closed
immediately; use 'docport chat' for multi-turn dialogue.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id (required)")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved chunks")
	_ = askCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := cmd.Context()
	conv, err := chatService.Open(ctx, askSession, "")
	if err != nil {
		return fmt.Errorf("opening conversation: %w", err)
	}

	answer, err := chatService.Ask(ctx, conv.ID, args[0])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	if endErr := chatService.End(ctx, conv.ID); endErr != nil {
		return fmt.Errorf("closing conversation: %w", endErr)
	}

	cmd.Println(answer.Text)

	if answer.UnsupportedByContext {
		cmd.Println("\nNote: no sufficiently relevant passages were found; this answer is not grounded in the session's documents.")
		return nil
	}

	cmd.Println("\nSources:")
	for i, c := range answer.Chunks {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, c.Chunk.Source, c.Score)
		if askShowContext {
			cmd.Printf("      %s\n", c.Chunk.Text)
		}
	}
	return nil
}
