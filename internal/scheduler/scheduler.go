package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is the part of the repository gateway the scheduler drives.
type Refresher interface {
	RefreshIfNeeded(ctx context.Context) error
}

// Scheduler runs background refresh checks on a cron schedule, so requests
// rarely pay for an upstream check themselves.
type Scheduler struct {
	refresher Refresher
	schedule  string
	cron      *cron.Cron
	mu        sync.Mutex
	logger    *slog.Logger
	running   bool
}

// New creates a scheduler. An empty schedule disables it.
//
// Common schedules:
//   - "*/10 * * * *" - every ten minutes
//   - "@every 30m"   - every thirty minutes from start
//   - "@hourly"      - at the top of every hour
func New(refresher Refresher, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		refresher: refresher,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger.With("component", "scheduler"),
	}
}

// Validate checks the schedule expression without starting anything.
func Validate(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return nil
}

// Start registers the refresh job and starts the cron runner. The scheduler
// stops when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("refresh schedule not configured, skipping scheduler")
		return nil
	}

	if err := Validate(s.schedule); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("refresh scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce performs one refresh check and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	if err := s.refresher.RefreshIfNeeded(ctx); err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
		return
	}
	s.logger.Debug("scheduled refresh completed", "duration", time.Since(start))
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("refresh scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled refresh, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
