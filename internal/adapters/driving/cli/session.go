package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage session indexes",
	Long:  `List persisted sessions or evict one, deleting its index and conversations.`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions",
	RunE:  runSessionList,
}

var sessionEvictCmd = &cobra.Command{
	Use:   "evict [session-id]",
	Short: "Delete a session's index and conversations",
	Long: `Deletes the session's persisted index files and any conversation
history recorded against it. Eviction is the only way session data is
ever removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionEvict,
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionEvictCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	infos, err := sessionService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(infos) == 0 {
		cmd.Println("No sessions found.")
		return nil
	}

	cmd.Println("Sessions:")
	for _, info := range infos {
		cmd.Printf("  %s: %d document(s), %d chunk(s), updated %s\n",
			info.ID, info.Documents, info.Chunks, info.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runSessionEvict(cmd *cobra.Command, args []string) error {
	if sessionService == nil {
		return errors.New("session service not configured")
	}

	sessionID := args[0]
	if err := sessionService.Evict(cmd.Context(), sessionID); err != nil {
		return fmt.Errorf("evicting session: %w", err)
	}

	cmd.Printf("Session %s evicted.\n", sessionID)
	return nil
}
