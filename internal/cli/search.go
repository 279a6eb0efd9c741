package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/kodeks/internal/app"
	"github.com/markdave123-py/kodeks/internal/services"
)

var searchActs []string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one semantic search and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		cfg.GenerateEmbeddings = true
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx := cmd.Context()
		a, err := app.NewApp(ctx, cfg, log, app.Options{Database: true, Embedder: true})
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.SearchService().Search(ctx, services.SearchRequest{
			Query:        strings.Join(args, " "),
			SelectedActs: searchActs,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		printResults("Cumulated", resp.Cumulated)
		printResults("Detailed", resp.Detailed)
		return nil
	},
}

func printResults(heading string, results []services.SearchResult) {
	fmt.Printf("%s (%d)\n", heading, len(results))
	for _, r := range results {
		fmt.Printf("  %.3f  %s\n", r.RelevanceScore, r.Title)
		fmt.Printf("         %s\n", truncate(r.Content, 160))
	}
	fmt.Println()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchActs, "act", nil, "limit to statutes (repeatable, e.g. --act KPA --act KPC)")
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the response as JSON")
	rootCmd.AddCommand(searchCmd)
}
