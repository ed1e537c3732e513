package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stockrank/stockrank/internal/config"
	"github.com/stockrank/stockrank/internal/domain/factors"
	"github.com/stockrank/stockrank/internal/domain/sector"
	"github.com/stockrank/stockrank/internal/scan"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scoring and selection pass",
		Long:  "Resolves the universe, fetches data through the provider chain, scores every symbol and prints the selected positions.",
		RunE:  runScan,
	}
	addScanFlags(cmd.Flags())
	return cmd
}

func addScanFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Algorithm configuration YAML (defaults to the built-in balanced setup)")
	fs.String("providers", "config/providers.yaml", "Provider chain configuration YAML")
	fs.String("benchmarks", "", "Sector benchmark table YAML (defaults to the compiled-in dataset)")
	fs.String("symbols", "", "Comma-separated symbol list overriding the configured universe")
	fs.Int("top-n", 0, "Override the configured selection size")
	fs.String("policy", "", "Override the selection policy (topN|rank|quantile|threshold)")
	fs.Duration("timeout", 0, "Override the run timeout")
	fs.Int("batch-size", 0, "Override the fetch batch size")
	fs.Bool("json", false, "Emit the full result as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	providersPath, _ := cmd.Flags().GetString("providers")
	benchmarksPath, _ := cmd.Flags().GetString("benchmarks")

	a, err := buildApp(providersPath, benchmarksPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, err := loadScanConfig(cmd)
	if err != nil {
		return err
	}

	result, err := a.engine.Scan(cmd.Context(), cfg)
	if err != nil {
		// A failed run still carries partial shape worth showing.
		if result != nil {
			printResult(cmd, result)
		}
		return err
	}
	printResult(cmd, result)
	return nil
}

func loadScanConfig(cmd *cobra.Command) (config.AlgorithmConfiguration, error) {
	known := factors.NewRegistry(sector.DefaultTable()).Has

	cfg := config.DefaultAlgorithm()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadAlgorithm(path, known)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if symbols, _ := cmd.Flags().GetString("symbols"); symbols != "" {
		cfg.Universe.Symbols = strings.Split(symbols, ",")
	}
	if topN, _ := cmd.Flags().GetInt("top-n"); topN > 0 {
		cfg.Selection.TopN = topN
	}
	if policy, _ := cmd.Flags().GetString("policy"); policy != "" {
		cfg.Selection.Policy = policy
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Run.Timeout = timeout
	}
	if batch, _ := cmd.Flags().GetInt("batch-size"); batch > 0 {
		cfg.Run.BatchSize = batch
	}
	return cfg, cfg.Validate(known)
}

func printResult(cmd *cobra.Command, result *scan.SelectionResult) {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}

	fmt.Printf("Run %s (%s): %s in %s\n",
		result.RunID, result.Algorithm, result.State,
		result.Metrics.Duration.Round(time.Millisecond))
	fmt.Printf("Universe %d, evaluated %d, selected %d, avg quality %.2f\n\n",
		result.Metrics.UniverseSize, result.Metrics.StocksEvaluated,
		result.Metrics.StocksSelected, result.Metrics.AverageQuality)

	if len(result.Selections) == 0 {
		fmt.Println("No selections.")
		return
	}
	fmt.Printf("%-8s %-7s %-8s %-8s %-6s %s\n", "SYMBOL", "SCORE", "WEIGHT", "CONF", "ACTION", "SECTOR")
	for _, sel := range result.Selections {
		fmt.Printf("%-8s %-7.3f %-8.3f %-8.2f %-6s %s\n",
			sel.Symbol, sel.Score.OverallScore, sel.Weight,
			sel.Confidence, sel.Action, sel.Score.Sector)
	}
	for _, msg := range result.Errors {
		fmt.Printf("\nerror: %s\n", msg)
	}
}
