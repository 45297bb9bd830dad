// Package scheduler triggers recurring flow runs from cron schedules
// stored alongside the flow graph.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// FlowRunner is the interface the scheduler uses to run the flow.
// Satisfied by the simulator's StoreRunner (avoids import cycle).
type FlowRunner interface {
	Run(ctx context.Context) (*schema.RunReport, error)
}

// Scheduler polls the store for due schedules and runs the flow.
type Scheduler struct {
	store  store.Store
	runner FlowRunner
	parser cron.Parser
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{} // schedule IDs currently executing (dedup)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(s store.Store, runner FlowRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    s,
		runner:   runner,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Start launches the background scheduling loop with a 60s ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	// Run an initial tick immediately.
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

// tick checks all enabled schedules and runs those that are due.
func (s *Scheduler) tick(ctx context.Context) {
	enabled := true
	schedules, err := s.store.ListSchedules(ctx, store.ScheduleFilter{Enabled: &enabled})
	if err != nil {
		s.logger.Error("failed to list schedules", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	for _, sched := range schedules {
		if sched.NextRunAt == nil || !sched.NextRunAt.After(now) {
			if !s.tryAcquire(sched.ID) {
				continue // already running (dedup)
			}
			if err := s.runSchedule(ctx, sched, now); err != nil {
				s.logger.Error("failed to run schedule",
					slog.String("schedule_id", sched.ID),
					slog.String("error", err.Error()),
				)
			}
			s.release(sched.ID)
		}
	}
}

// runSchedule executes one scheduled flow run and updates its timestamps.
func (s *Scheduler) runSchedule(ctx context.Context, sched *store.Schedule, now time.Time) error {
	s.logger.Info("running scheduled flow",
		slog.String("schedule_id", sched.ID),
		slog.String("cron", sched.CronExpression),
	)

	report, err := s.runner.Run(ctx)
	status := "success"
	if err != nil {
		status = "error"
		s.logger.Error("scheduled flow run failed",
			slog.String("schedule_id", sched.ID),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("scheduled flow run completed",
			slog.String("schedule_id", sched.ID),
			slog.Int("agents_run", len(report.ExecutionOrder)),
		)
	}

	return s.updateStatus(ctx, sched, now, status)
}

func (s *Scheduler) updateStatus(ctx context.Context, sched *store.Schedule, now time.Time, status string) error {
	nextRun, err := s.CalculateNextRun(sched.CronExpression, now)
	if err != nil {
		return fmt.Errorf("calculate next run for schedule %q: %w", sched.ID, err)
	}

	return s.store.UpdateSchedule(ctx, sched.ID, store.ScheduleUpdate{
		LastRunAt:     &now,
		NextRunAt:     &nextRun,
		LastRunStatus: status,
	})
}

// tryAcquire returns true and marks the schedule as in-flight if it is not
// already running.
func (s *Scheduler) tryAcquire(id string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

// release removes the schedule from the in-flight set.
func (s *Scheduler) release(id string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, id)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
