package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/markdave123-py/kodeks/internal/config"
	"github.com/markdave123-py/kodeks/internal/logger"
)

// Set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

var (
	cfgFile string
	logMode string
)

var rootCmd = &cobra.Command{
	Use:   "kodeks",
	Short: "Kodeks - Polish statute ingestion and semantic search",
	Long: `Kodeks loads article-level fragments of Polish statutes (KPA, KPC, KPE,
KPK, SUS), merges each article into cumulated records, embeds them and
stores everything in Postgres with pgvector for semantic search.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kodeks " + Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./kodeks.yaml or $HOME/.kodeks/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logMode, "log-mode", "", "log mode: dev or prod")
	_ = viper.BindPFlag("log_mode", rootCmd.PersistentFlags().Lookup("log-mode"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.kodeks")
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("kodeks")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// loadRuntime loads the configuration and builds the logger for a command.
func loadRuntime() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		log.Debug("config file loaded", "path", f)
	}
	return cfg, log, nil
}
