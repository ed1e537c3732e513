package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "stockrank"
	version = "v1.2.0"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Multi-factor equity scoring and selection engine",
		Version: version,
		Long: `stockrank scores equities on ~20 normalized factors (value, quality,
momentum, volatility, sentiment), fuses multi-provider data with quality
weighting, and selects positions under sector and concentration caps.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			if parsed, err := zerolog.ParseLevel(level); err == nil {
				zerolog.SetGlobalLevel(parsed)
			}
		},
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newBenchmarksCmd())
	rootCmd.AddCommand(newResultsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
