package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stockrank/stockrank/internal/config"
	"github.com/stockrank/stockrank/internal/domain/factors"
	"github.com/stockrank/stockrank/internal/domain/sector"
	httpserver "github.com/stockrank/stockrank/internal/interfaces/http"
	"github.com/stockrank/stockrank/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled scans with a health and metrics endpoint",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("config", "", "Algorithm configuration YAML")
	cmd.Flags().String("providers", "config/providers.yaml", "Provider chain configuration YAML")
	cmd.Flags().String("benchmarks", "", "Sector benchmark table YAML")
	cmd.Flags().String("schedule", "0 * * * *", "Cron schedule for the scan job")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	providersPath, _ := cmd.Flags().GetString("providers")
	benchmarksPath, _ := cmd.Flags().GetString("benchmarks")
	addr, _ := cmd.Flags().GetString("addr")
	schedule, _ := cmd.Flags().GetString("schedule")

	a, err := buildApp(providersPath, benchmarksPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := config.DefaultAlgorithm()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		known := factors.NewRegistry(sector.DefaultTable()).Has
		cfg, err = config.LoadAlgorithm(path, known)
		if err != nil {
			return err
		}
	}

	sched := scheduler.New(a.engine)
	if err := sched.AddJob(schedule, cfg); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := httpserver.NewServer(addr, a.breakers, a.engine.Tracker())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
