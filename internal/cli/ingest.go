package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markdave123-py/kodeks/internal/app"
	"github.com/markdave123-py/kodeks/internal/core/ingestion_engine"
)

var (
	noEmbed    bool
	dryRun     bool
	jsonOutput bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the acts and acts_cumulated tables",
	Long: `Load every configured statute, merge each article into cumulated
records, drop detail rows already covered by a composite, embed both sets
and replace the acts and acts_cumulated tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, ingestion_engine.ProfileActs)
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Build the display-only context table",
	Long: `Load every configured statute, sort fragments naturally and replace
the context table. No cumulation and no embeddings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, ingestion_engine.ProfileContext)
	},
}

func runIngest(cmd *cobra.Command, profile ingestion_engine.Profile) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer log.Sync()

	if f := cmd.Flags().Lookup("sample"); f != nil && f.Changed {
		cfg.SampleSize, _ = cmd.Flags().GetInt("sample")
	}
	if noEmbed || profile == ingestion_engine.ProfileContext {
		cfg.GenerateEmbeddings = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !dryRun {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := app.NewApp(ctx, cfg, log, app.Options{
		Database: !dryRun,
		Embedder: cfg.GenerateEmbeddings,
		Objects:  true,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ic := &ingestion_engine.IngestConfig{
		Profile:            profile,
		Embed:              cfg.GenerateEmbeddings,
		MinTokensActs:      cfg.MinTokensActs,
		MinTokensCumulated: cfg.MinTokensCumulated,
		MaxBatchItems:      cfg.MaxBatchItems,
		MaxBatchTokens:     cfg.MaxBatchTokens,
		Concurrency:        cfg.EmbedConcurrency,
		SampleSize:         cfg.SampleSize,
		SampleSeed:         cfg.SampleSeed,
		DryRun:             dryRun,
	}

	sum, err := a.Pipeline(ic).Run(ctx, a.Sources())
	if sum != nil {
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(sum)
		} else {
			printSummary(os.Stderr, sum)
		}
	}
	return err
}

func init() {
	for _, c := range []*cobra.Command{ingestCmd, contextCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "run every stage without touching the database")
		c.Flags().BoolVar(&jsonOutput, "json", false, "print the run summary as JSON on stdout")
		c.Flags().Int("sample", 0, "keep N random rows per source file (test mode)")
		rootCmd.AddCommand(c)
	}
	ingestCmd.Flags().BoolVar(&noEmbed, "no-embed", false, "skip embedding generation")
	ingestCmd.Flags().Int("concurrency", 1, "embedding requests in flight")

	_ = viper.BindPFlag("embed_concurrency", ingestCmd.Flags().Lookup("concurrency"))
}
