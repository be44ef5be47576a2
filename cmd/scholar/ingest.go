// ABOUTME: CLI command that embeds and stores a batch of academic sources.
// ABOUTME: Reads JSON or YAML documents, defaulting to the bundled sample dataset.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/scholar/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Embed and store academic sources",
	Long: `Load documents from a JSON or YAML file, embed each one, and insert it into the store.

Without a file argument the bundled sample dataset is ingested.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

// Flags
var (
	ingestPolicy      string
	ingestConcurrency int
	ingestJSON        bool
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestPolicy, "policy", "", "Embedding failure policy: continue or abort (default from config)")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "Parallel embedding requests (default from config)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Print the run report as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := ingest.DefaultSamplePath
	if len(args) > 0 {
		path = args[0]
	}
	path = ingest.ResolvePath(path)

	docs, err := ingest.LoadDocuments(path)
	if err != nil {
		return err
	}

	pipeline, err := newPipeline(ingestPolicy, ingestConcurrency)
	if err != nil {
		return err
	}

	report, err := pipeline.Ingest(cmd.Context(), docs)
	if ingestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	} else {
		printReport(path, report)
	}
	if err != nil {
		return fmt.Errorf("ingestion stopped: %w", err)
	}
	return nil
}

func printReport(path string, report ingest.Report) {
	fmt.Printf("Ingested %d of %d sources from %s\n", report.Inserted, report.Documents, path)
	fmt.Printf("  Embedded:       %d\n", report.Embedded)
	if report.EmbedFailures > 0 {
		fmt.Printf("  Not embedded:   %d\n", report.EmbedFailures)
	}
	if report.FellBack > 0 {
		fmt.Printf("  Mock fallbacks: %d\n", report.FellBack)
	}
	if len(report.IDs) > 0 {
		fmt.Printf("  IDs:            %d-%d\n", report.IDs[0], report.IDs[len(report.IDs)-1])
	}
	fmt.Printf("  Run:            %s (%s)\n", report.RunID, report.Duration.Round(time.Millisecond))
}
