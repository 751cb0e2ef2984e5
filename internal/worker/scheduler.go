// Package worker runs the daily letter broadcast in the background. It is
// decoupled from the HTTP layer: the api package triggers ad-hoc broadcasts
// through the orchestrator directly and never imports this package.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/love-letters-backend/internal/delivery"
	"github.com/nyashahama/love-letters-backend/internal/store"
)

// Broadcaster sends one day's letters; *delivery.Orchestrator satisfies it.
type Broadcaster interface {
	BroadcastRun(ctx context.Context, runID uuid.UUID) (delivery.BroadcastStats, error)
}

// RunLedger records which days have been broadcast; *store.Store satisfies it.
type RunLedger interface {
	ClaimBroadcastRun(ctx context.Context, day time.Time) (uuid.UUID, error)
	FinishBroadcastRun(ctx context.Context, id uuid.UUID, success, failed, total int) error
}

// SchedulerConfig holds the daily slot and run limits. Zero values take the
// defaults from DefaultSchedulerConfig.
type SchedulerConfig struct {
	// Hour and Minute are the wall-clock slot in Location.
	Hour     int
	Minute   int
	Location *time.Location

	// RunTimeout bounds a single broadcast. Default: 30 minutes.
	RunTimeout time.Duration

	// CatchUp is how late after the slot a starting process still runs the
	// day's broadcast. Zero disables catch-up.
	CatchUp time.Duration
}

// DefaultSchedulerConfig returns 07:00 UTC with a 30 minute run timeout.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Hour:       7,
		Location:   time.UTC,
		RunTimeout: 30 * time.Minute,
		CatchUp:    2 * time.Hour,
	}
}

// Scheduler fires one broadcast per calendar day. Each run first claims the
// day in the ledger, so restarts and extra replicas never send twice.
type Scheduler struct {
	broadcaster Broadcaster
	runs        RunLedger
	cfg         SchedulerConfig
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler constructs a Scheduler. Call Start to begin.
func NewScheduler(b Broadcaster, runs RunLedger, cfg SchedulerConfig, logger *slog.Logger, opts ...Option) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultSchedulerConfig().RunTimeout
	}

	s := &Scheduler{
		broadcaster: b,
		runs:        runs,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start blocks until ctx is cancelled, running the broadcast at every slot.
// Call it in a goroutine from main:
//
//	go scheduler.Start(ctx)
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler: starting",
		"at", fmt.Sprintf("%02d:%02d", s.cfg.Hour, s.cfg.Minute),
		"tz", s.cfg.Location.String(),
	)

	// A process that starts shortly after today's slot still sends today.
	now := s.now()
	if slot := s.slotOn(now); s.cfg.CatchUp > 0 && !now.Before(slot) && now.Sub(slot) < s.cfg.CatchUp {
		s.logger.Info("scheduler: catching up missed slot", "slot", slot)
		s.run(ctx, slot)
	}

	for {
		next := NextRun(s.now(), s.cfg.Hour, s.cfg.Minute, s.cfg.Location)
		timer := time.NewTimer(next.Sub(s.now()))
		s.logger.Info("scheduler: next broadcast", "at", next)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler: stopped")
			return
		case <-timer.C:
			s.run(ctx, next)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, slot time.Time) {
	err := s.RunOnce(ctx, slot)
	switch {
	case errors.Is(err, store.ErrBroadcastClaimed):
		s.logger.Info("scheduler: broadcast already ran today", "day", slot.Format(time.DateOnly))
	case err != nil:
		s.logger.Error("scheduler: broadcast failed", "day", slot.Format(time.DateOnly), "error", err)
	}
}

// RunOnce claims the calendar day of slot and broadcasts. It returns
// store.ErrBroadcastClaimed when the day was already taken. A failed
// broadcast keeps its claim; the day is not retried.
func (s *Scheduler) RunOnce(ctx context.Context, slot time.Time) error {
	local := slot.In(s.cfg.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)

	runID, err := s.runs.ClaimBroadcastRun(ctx, day)
	if err != nil {
		return err
	}
	log := s.logger.With("run_id", runID, "day", day.Format(time.DateOnly))
	log.Info("scheduler: broadcast claimed")

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	stats, runErr := s.broadcaster.BroadcastRun(runCtx, runID)
	cancel()

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.runs.FinishBroadcastRun(finishCtx, runID, stats.SuccessCount, stats.ErrorCount, stats.TotalSubscribers); err != nil {
		log.Error("scheduler: failed to record run totals", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("worker: broadcast run %s: %w", runID, runErr)
	}
	log.Info("scheduler: broadcast finished",
		"success", stats.SuccessCount,
		"errors", stats.ErrorCount,
		"subscribers", stats.TotalSubscribers,
	)
	return nil
}

func (s *Scheduler) slotOn(t time.Time) time.Time {
	local := t.In(s.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), s.cfg.Hour, s.cfg.Minute, 0, 0, s.cfg.Location)
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
