package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docport-cli/internal/adapters/driving/tui"
)

var (
	chatSession string
	chatResume  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat against a session",
	Long: `Launches an interactive terminal chat grounded in the session's
documents. Every answer cites the documents it was retrieved from.

Pass --resume with a conversation id to continue an earlier chat with
its history.

Controls:
  Enter       - Ask the question
  Esc, Ctrl+C - Quit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id")
	chatCmd.Flags().StringVar(&chatResume, "resume", "", "conversation id to resume")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Surface a stack trace instead of a corrupted terminal.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if chatService == nil {
		return errors.New("chat service not configured")
	}
	if chatSession == "" && chatResume == "" {
		return errors.New("either --session or --resume is required")
	}

	ctx := cmd.Context()
	conv, err := chatService.Open(ctx, chatSession, chatResume)
	if err != nil {
		return fmt.Errorf("opening conversation: %w", err)
	}

	model := tui.New(ctx, chatService, conv)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}
