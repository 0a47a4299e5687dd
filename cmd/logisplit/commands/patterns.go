package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GordonCopestake/Logisplit/cmd/logisplit/ui"
	"github.com/GordonCopestake/Logisplit/internal/domain"
	"github.com/GordonCopestake/Logisplit/internal/patterns"
)

var (
	addExample string
	addOutput  string
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage rename patterns",
	Long:  "List the rename patterns known to the processing service or teach it a new one by example.",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered rename patterns",
	Args:  cobra.NoArgs,
	RunE:  runPatternsList,
}

var patternsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rename pattern from an example",
	Long: `Sends an example filename and the name it should be renamed to. The service
derives a pattern from the pair; the refreshed list is printed afterwards.`,
	Example: "  logisplit patterns add --example img_001.jpg --output photo_001.jpg",
	Args:    cobra.NoArgs,
	RunE:    runPatternsAdd,
}

func init() {
	patternsAddCmd.Flags().StringVarP(&addExample, "example", "e", "", "example filename (required)")
	patternsAddCmd.Flags().StringVarP(&addOutput, "output", "o", "", "desired output name (required)")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsAddCmd)
	rootCmd.AddCommand(patternsCmd)
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	client, closeCache, err := newPatternClient(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	entries, err := client.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list patterns: %w", err)
	}

	printPatterns(entries)
	return nil
}

func runPatternsAdd(cmd *cobra.Command, args []string) error {
	client, closeCache, err := newPatternClient(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	form := &patterns.Form{Example: addExample, Output: addOutput}
	entries, err := form.Submit(cmd.Context(), client)
	if err != nil {
		if domain.IsType(err, domain.ErrorTypeValidation) {
			return fmt.Errorf("%w (use --example and --output)", err)
		}
		return fmt.Errorf("add pattern %q -> %q: %w", form.Example, form.Output, err)
	}

	ui.Success("Pattern example saved")
	printPatterns(entries)
	return nil
}

func printPatterns(entries []domain.PatternEntry) {
	if len(entries) == 0 {
		ui.Info("No patterns registered")
		return
	}
	for _, line := range patterns.Format(entries) {
		ui.Line("  %s", line)
	}
}
