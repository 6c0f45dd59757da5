// Package scheduler runs the periodic background jobs of the bot.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// rateRefreshSpec runs shortly after midnight UTC so the day starts
// with a fresh table even if nobody converted anything yesterday.
const rateRefreshSpec = "10 0 * * *"

// Scheduler wraps cron around the rate refresh job.
type Scheduler struct {
	cron        *cron.Cron
	ctx         context.Context
	cancel      context.CancelFunc
	refreshFunc func(ctx context.Context) error
	log         zerolog.Logger
}

func New(refreshFunc func(ctx context.Context) error, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		ctx:         ctx,
		cancel:      cancel,
		refreshFunc: refreshFunc,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() error {
	if s.refreshFunc == nil {
		s.log.Warn().Msg("no refresh function set, scheduler idle")
		return nil
	}
	_, err := s.cron.AddFunc(rateRefreshSpec, func() {
		s.log.Info().Msg("daily rate refresh triggered")
		if err := s.refreshFunc(s.ctx); err != nil {
			s.log.Warn().Err(err).Msg("daily rate refresh failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("spec", rateRefreshSpec).Msg("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info().Msg("scheduler stopped")
}
