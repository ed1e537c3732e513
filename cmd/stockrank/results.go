package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockrank/stockrank/internal/persistence/postgres"
)

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect persisted selection results",
	}

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent completed run for an algorithm",
		RunE:  runResultsLatest,
	}
	latestCmd.Flags().String("algorithm", "balanced", "Algorithm configuration name")
	latestCmd.Flags().Bool("json", false, "Emit the full result as JSON")

	cmd.AddCommand(latestCmd)
	return cmd
}

func runResultsLatest(cmd *cobra.Command, args []string) error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is not set; result persistence is disabled")
	}

	repo, err := postgres.Connect(dsn, 5*time.Second)
	if err != nil {
		return err
	}
	defer repo.Close()

	algorithm, _ := cmd.Flags().GetString("algorithm")
	result, err := repo.LatestResult(cmd.Context(), algorithm)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Printf("No completed runs for algorithm %q.\n", algorithm)
		return nil
	}
	printResult(cmd, result)
	return nil
}
