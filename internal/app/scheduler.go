package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"flavorwatch/internal/observability"
)

// Runner is anything that can perform one check.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (*Outcome, error)
}

// Scheduler fires a notifying run on a cron schedule. A run that is still going when the
// next one fires is not waited for; runs share no state.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *observability.Logger
	ctx    context.Context
	expr   string
}

// NewScheduler validates expr (standard 5-field cron) and registers the job. ctx is handed
// to every run, so cancelling it aborts in-flight fetches on shutdown.
func NewScheduler(ctx context.Context, expr string, loc *time.Location, runner Runner, logger *observability.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		logger: logger,
		ctx:    ctx,
		expr:   expr,
	}

	if _, err := s.cron.AddFunc(expr, s.runJob); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "cron_expr", s.expr, "next_run", s.Next().Format(time.RFC3339))
}

// Stop prevents new runs and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Scheduler stopping")
	return s.cron.Stop()
}

// Next is the time of the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// runJob discards the outcome; the pipeline already logged it and sent any email.
func (s *Scheduler) runJob() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled run panicked", "panic", fmt.Sprint(r))
		}
	}()

	_, _ = s.runner.Run(s.ctx, RunOptions{Notify: true, Trigger: "schedule"})
}
