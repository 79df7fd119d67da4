// Package scheduler runs the background loops of the farm server: the
// activity scheduler that fires due recurring activities, and the
// retention loop that prunes the planting event log.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tilthlabs/tilth/internal/config"
	"github.com/tilthlabs/tilth/internal/farm"
	"go.uber.org/zap"
)

// Config holds the dependencies for the scheduler
type Config struct {
	Service   *farm.Service
	Logger    *zap.Logger
	Interval  time.Duration // tick interval; defaults to 1 minute if zero
	Retention *config.RetentionConfig
}

// Scheduler periodically fires due activity schedules and, when
// retention is enabled, prunes old planting events.
type Scheduler struct {
	service   *farm.Service
	logger    *zap.Logger
	interval  time.Duration
	retention *config.RetentionConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler from the config
func New(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		service:   cfg.Service,
		logger:    logger,
		interval:  interval,
		retention: cfg.Retention,
	}
}

// Start begins the background loops. They respect the provided context
// for shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.scheduleLoop(ctx)

	if s.retention != nil && s.retention.CleanupEnabled {
		s.wg.Add(1)
		go s.retentionLoop(ctx)
	}

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
}

// Stop cancels the loops and waits for them to exit
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// scheduleLoop ticks at the configured interval and fires due schedules
func (s *Scheduler) scheduleLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Fire immediately on startup, then on each tick
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick queries for due schedules and fires each one
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	due, err := s.service.Store().DueSchedules(ctx, now)
	if err != nil {
		s.logger.Error("failed to query due schedules", zap.Error(err))
		return
	}
	for _, sched := range due {
		if err := s.service.FireSchedule(ctx, sched, now); err != nil {
			s.logger.Error("failed to fire schedule",
				zap.String("schedule_id", sched.ID),
				zap.String("schedule_name", sched.Name),
				zap.Error(err))
		}
	}
}

// retentionLoop prunes the planting event log on the configured cadence
func (s *Scheduler) retentionLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.retention.CleanupIntervalHours) * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	deleted, err := s.service.CleanupEvents(ctx,
		s.retention.RetentionDays,
		s.retention.RetentionCriticalDays,
		s.retention.CleanupBatchSize,
		s.retention.CleanupVacuum)
	if err != nil {
		s.logger.Error("event cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("event cleanup finished", zap.Int("deleted", deleted))
	}
}
