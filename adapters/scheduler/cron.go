package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pruner deletes session tokens that no longer validate
type Pruner interface {
	DeleteExpiredTokens(ctx context.Context) (int, error)
}

// PruneScheduler runs the expired-session sweep on a cron schedule
type PruneScheduler struct {
	cron    *cron.Cron
	pruner  Pruner
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPruneScheduler registers the sweep on schedule, e.g. "@every 10m" or "0 3 * * *"
func NewPruneScheduler(schedule string, pruner Pruner, logger zerolog.Logger) (*PruneScheduler, error) {
	s := &PruneScheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		pruner:  pruner,
		timeout: 5 * time.Minute,
		logger:  logger.With().Str("component", "prune_scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	return s, nil
}

// RunOnce performs a single sweep
func (s *PruneScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Debug().Msg("starting expired session sweep")
	deleted, err := s.pruner.DeleteExpiredTokens(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int("deleted", deleted).Msg("expired session sweep failed")
	}
}

// Run starts the scheduler and blocks until ctx is done, then waits for a running sweep
func (s *PruneScheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info().Msg("prune scheduler started")

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("prune scheduler stopped")
	return nil
}
