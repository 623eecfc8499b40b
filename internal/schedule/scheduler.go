package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is the body of a scheduled job. A returned error is fatal to the
// scheduler.
type JobFunc func(ctx context.Context) error

// Scheduler runs jobs on cron schedules. A job never overlaps with its own
// previous run; different jobs may run concurrently.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	errs   chan error

	ctx context.Context
}

// New creates an empty Scheduler.
func New(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		errs:   make(chan error, 1),
		ctx:    context.Background(),
	}
}

// Add registers a job under a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse schedule for %s: %w", name, err)
	}
	s.AddSchedule(name, sched, fn)
	return nil
}

// AddSchedule registers a job with an explicit schedule.
func (s *Scheduler) AddSchedule(name string, sched cron.Schedule, fn JobFunc) {
	s.cron.Schedule(sched, cron.FuncJob(func() { s.run(name, fn) }))
}

func (s *Scheduler) run(name string, fn JobFunc) {
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	s.logger.Debug("job started", "job", name)

	if err := fn(s.ctx); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		err = fmt.Errorf("job %s: %w", name, err)
		select {
		case s.errs <- err:
		default:
		}
		return
	}
	s.logger.Debug("job finished", "job", name, "duration", time.Since(start))
}

// Run starts the scheduler and blocks until ctx is cancelled or a job fails.
// Running jobs are waited for before it returns. The first job error is
// returned; cancellation returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))

	var err error
	select {
	case <-ctx.Done():
	case err = <-s.errs:
		s.logger.Error("job failed, stopping scheduler", "error", err)
	}

	cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return err
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
