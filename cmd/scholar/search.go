// ABOUTME: CLI command for semantic search over stored academic sources.
// ABOUTME: Embeds the query and prints the nearest sources by L2 distance.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/scholar/internal/models"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the sources closest to a query",
	Long:  "Embed a natural-language query and list the k nearest stored sources.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

// Flags
var (
	searchK    int
	searchJSON bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "Number of results (default 5)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	results, err := newService().Search(cmd.Context(), query, searchK)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No embedded sources found. Run 'scholar ingest' first.")
		return nil
	}

	for i, r := range results {
		printResult(i+1, r)
	}
	return nil
}

func printResult(rank int, r models.QueryResult) {
	year := "n.d."
	if r.Year != nil {
		year = fmt.Sprintf("%d", *r.Year)
	}
	fmt.Printf("%d. %s (%s)\n", rank, r.Title, year)
	if len(r.Authors) > 0 {
		fmt.Printf("   %s\n", strings.Join(r.Authors, ", "))
	}
	fmt.Printf("   id=%d distance=%.4f", r.ID, r.Distance)
	if r.SourceType != "" {
		fmt.Printf(" type=%s", r.SourceType)
	}
	fmt.Println()
}
