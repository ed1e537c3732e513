package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stockrank/stockrank/internal/domain/sector"
)

func newBenchmarksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmarks",
		Short: "Inspect and validate sector benchmark tables",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a benchmark table's percentile ordering",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			table := sector.DefaultTable()
			source := "compiled-in"
			if path != "" {
				loaded, err := sector.LoadTable(path)
				if err != nil {
					return err
				}
				table = loaded
				source = path
			}
			if err := table.Validate(); err != nil {
				return fmt.Errorf("benchmark table %s: %w", source, err)
			}
			fmt.Printf("Benchmark table %s: %d sectors, valid\n", source, len(table))
			return nil
		},
	}
	validateCmd.Flags().String("file", "", "Benchmark table YAML (defaults to the compiled-in dataset)")

	cmd.AddCommand(validateCmd)
	return cmd
}
