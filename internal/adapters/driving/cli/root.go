// Package cli implements the cobra command tree for docport.
//
// Commands hold no business logic: they parse arguments, call the
// driving ports injected through SetServices, and render the results.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docport-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docport-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docport-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by main before Execute.
var (
	ingestService  driving.IngestService
	retriever      driving.Retriever
	chatService    driving.ChatService
	compareService driving.CompareService
	sessionService driving.SessionService
	configStore    driven.ConfigStore
)

// Services bundles everything the command tree needs.
type Services struct {
	Ingest   driving.IngestService
	Retrieve driving.Retriever
	Chat     driving.ChatService
	Compare  driving.CompareService
	Session  driving.SessionService
	Config   driven.ConfigStore
}

// SetServices wires the driving ports into the command tree.
func SetServices(s *Services) {
	ingestService = s.Ingest
	retriever = s.Retrieve
	chatService = s.Chat
	compareService = s.Compare
	sessionService = s.Session
	configStore = s.Config
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docport",
	Short: "Session-scoped document indexing and grounded Q&A",
	Long: `Docport ingests documents into per-session semantic indexes,
answers questions grounded in their content, and compares document pairs.

Each session is an isolated index on disk. Ingest documents into a
session, then ask one-shot questions or start an interactive chat
against it. Sessions persist until explicitly evicted.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging to stderr")
}

// Execute runs the root command. The context is threaded through to
// every command so signal cancellation reaches the services.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
