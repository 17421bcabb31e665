// Package schedule runs stored workflows on cron expressions.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrInvalidSchedule  = errors.New("invalid cron expression")
	ErrAlreadyScheduled = errors.New("workflow already scheduled")
)

// RunFunc executes one workflow. It is called from the cron goroutine; a run
// still in progress when the next tick arrives makes that tick a no-op.
type RunFunc func(ctx context.Context, workflowID string) error

type Scheduler struct {
	cron    *cron.Cron
	run     RunFunc
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*options)

type options struct {
	location *time.Location
}

// WithLocation interprets expressions in loc instead of the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

func New(run RunFunc, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	o := options{location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.With("module", "scheduler")
	cronLogger := &slogAdapter{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(cronLogger),
			cron.WithChain(
				cron.Recover(cronLogger),
				cron.SkipIfStillRunning(cronLogger),
			),
		),
		run:     run,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Validate reports whether expr is a standard five-field cron expression or descriptor.
func Validate(expr string) error {
	_, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, expr, err)
	}

	return nil
}

// Add schedules workflowID on expr. A workflow holds at most one schedule.
func (s *Scheduler) Add(workflowID, expr string) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[workflowID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyScheduled, workflowID)
	}

	s.entries[workflowID] = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.fire(workflowID)
	}))

	s.logger.Info("Workflow scheduled", "workflow_id", workflowID, "cron", expr)

	return nil
}

// Remove unschedules workflowID and reports whether it was scheduled.
func (s *Scheduler) Remove(workflowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[workflowID]
	if !ok {
		return false
	}

	s.cron.Remove(id)
	delete(s.entries, workflowID)

	return true
}

// Next returns the next activation time of workflowID. It is zero until Start.
func (s *Scheduler) Next(workflowID string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[workflowID]
	s.mu.Unlock()

	if !ok {
		return time.Time{}, false
	}

	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", "workflows", len(s.entries))
	s.cron.Start()
}

// Stop prevents new runs, cancels the context of running ones and waits for
// them to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scheduler")

	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) fire(workflowID string) {
	started := time.Now()

	s.logger.Info("Cron job triggered", "workflow_id", workflowID)

	err := s.run(s.ctx, workflowID)
	if err != nil {
		s.logger.Error("Error executing scheduled workflow", "workflow_id", workflowID, "error", err)

		return
	}

	s.logger.Info("Scheduled workflow finished", "workflow_id", workflowID, "duration", time.Since(started))
}

// slogAdapter satisfies cron.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error(msg, append(keysAndValues, "error", err)...)
}
