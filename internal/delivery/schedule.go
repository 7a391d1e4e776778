package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is refreshed on each scheduled run.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler refreshes availability on a cron schedule so page renders rarely wait on a fetch.
type Scheduler struct {
	cron    *cron.Cron
	target  Refresher
	timeout time.Duration
	logger  *slog.Logger
	observe func(outcome string)
}

// NewScheduler schedules target.Refresh with spec ("@every 5m", "*/10 * * * *").
// observe, if set, receives "ok" or "failed" after each run.
func NewScheduler(target Refresher, spec string, logger *slog.Logger, observe func(outcome string)) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(
				cron.Recover(cl),
				cron.SkipIfStillRunning(cl),
			),
		),
		target:  target,
		timeout: 2 * DefaultFetchTimeout,
		logger:  logger,
		observe: observe,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and returns a context that is done once a running refresh finishes.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	outcome := "ok"
	if err := s.target.Refresh(ctx); err != nil {
		outcome = "failed"
		s.logger.Warn("delivery availability refresh failed", slog.String("error", err.Error()))
	}
	if s.observe != nil {
		s.observe(outcome)
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
