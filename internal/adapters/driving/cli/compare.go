package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docport-cli/internal/core/domain"
)

var compareJSON bool

var compareCmd = &cobra.Command{
	Use:   "compare [file-a] [file-b]",
	Short: "Compare two documents",
	Long: `Extracts both documents and reports their differences section by
section. Byte-identical files are reported as identical without any
model call. Nothing is indexed or persisted.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if compareService == nil {
		return errors.New("compare service not configured")
	}

	docA, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	docB, err := loadDocument(args[1])
	if err != nil {
		return err
	}

	report, err := compareService.Compare(cmd.Context(), docA, docB)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	if compareJSON {
		return outputCompareJSON(cmd, report)
	}
	return outputCompareText(cmd, report)
}

func outputCompareJSON(cmd *cobra.Command, report *domain.ComparisonReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputCompareText(cmd *cobra.Command, report *domain.ComparisonReport) error {
	cmd.Printf("Comparing %s against %s\n\n", report.NameA, report.NameB)

	if report.Identical {
		cmd.Println(report.Summary)
		return nil
	}

	for _, f := range report.Findings {
		section := f.Section
		if section == "" {
			section = "(unlabelled)"
		}
		cmd.Printf("  %s: %s\n", section, f.Change)
	}
	cmd.Printf("\n%s\n", report.Summary)
	return nil
}
