package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

var ingestSession string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents into a session index",
	Long: `Extracts, chunks and embeds documents into a session's semantic index.

Supported formats: plain text, markdown, PDF and DOCX. Documents already
present in the session (by content fingerprint) are skipped. Without
--session a new session id is minted and printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSession, "session", "s", "", "session id (minted when omitted)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	docs := make([]domain.Document, 0, len(args))
	for _, path := range args {
		doc, err := loadDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	report, err := ingestService.Ingest(cmd.Context(), ingestSession, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Session: %s\n\n", report.SessionID)
	for _, d := range report.Ingested {
		cmd.Printf("  ingested   %s (%d chunks, %d words)\n", d.Name, d.Stats.Chunks, d.Stats.Words)
	}
	for _, d := range report.SkippedDuplicate {
		cmd.Printf("  duplicate  %s (already in session)\n", d.Name)
	}
	for _, d := range report.Failed {
		cmd.Printf("  failed     %s: %s\n", d.Name, d.Reason)
	}
	cmd.Printf("\n%d document(s): %d ingested, %d duplicate(s), %d failed\n",
		report.Total(), len(report.Ingested), len(report.SkippedDuplicate), len(report.Failed))

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", len(report.Failed))
	}
	return nil
}

// loadDocument reads a file and derives its media type from the extension.
func loadDocument(path string) (domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return domain.Document{
		Name:      filepath.Base(path),
		MediaType: mediaTypeForPath(path),
		Content:   content,
	}, nil
}

// mediaTypeForPath maps a file extension to the declared media type.
// Unknown extensions are declared as plain text; the extractor registry
// decides whether that is acceptable.
func mediaTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".log":
		return "text/x-log"
	default:
		return "text/plain"
	}
}
