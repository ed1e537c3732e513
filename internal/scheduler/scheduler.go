// Package scheduler runs periodic scans on a cron cadence.
package scheduler

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/stockrank/stockrank/internal/config"
	"github.com/stockrank/stockrank/internal/scan"
)

// Scheduler triggers engine runs on cron schedules. A job that is still
// running when its next tick fires is skipped, not stacked.
type Scheduler struct {
	cron   *cron.Cron
	engine *scan.Engine
}

// New creates a stopped scheduler.
func New(engine *scan.Engine) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
	}
}

// AddJob schedules one algorithm configuration. Standard 5-field cron
// spec, e.g. "*/15 9-16 * * 1-5" for every 15 minutes during trading
// hours.
func (s *Scheduler) AddJob(spec string, cfg config.AlgorithmConfiguration) error {
	var running int32
	_, err := s.cron.AddFunc(spec, func() {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			log.Warn().Str("algorithm", cfg.Name).Msg("Previous scheduled scan still running, skipping tick")
			return
		}
		defer atomic.StoreInt32(&running, 0)

		result, err := s.engine.Scan(context.Background(), cfg)
		if err != nil {
			log.Error().Err(err).Str("algorithm", cfg.Name).Msg("Scheduled scan failed")
			return
		}
		log.Info().Str("algorithm", cfg.Name).Str("run_id", result.RunID).
			Int("selected", result.Metrics.StocksSelected).
			Msg("Scheduled scan completed")
	})
	return err
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop waits for running jobs to finish and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Scheduler stopped")
}
