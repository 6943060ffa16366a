// Package cron runs the polling reconciliation jobs: ban expiry and stale
// game sweeps. Both are independent of the mutations they reconcile.
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/constants"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/game"
	"github.com/TaqdeesHigh/RBW-Bot-sub000/internal/moderation"
)

type Scheduler struct {
	cron      *cron.Cron
	ledger    *moderation.Ledger
	lifecycle *game.Service
	logger    zerolog.Logger
}

func NewScheduler(ledger *moderation.Ledger, lifecycle *game.Service, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		ledger:    ledger,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.runBanSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.runStaleGameSweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runBanSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()

	if _, err := s.ledger.CheckAndRemoveBans(ctx); err != nil {
		s.logger.Error().Err(err).Msg("ban sweep failed")
	}
}

func (s *Scheduler) runStaleGameSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()

	cutoff := time.Now().Add(-constants.StaleGameCutoff)
	if _, err := s.lifecycle.SweepStale(ctx, cutoff); err != nil {
		s.logger.Error().Err(err).Msg("stale game sweep failed")
	}
}
