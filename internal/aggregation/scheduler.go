package aggregation

import (
	"context"
	"log/slog"
	"time"

	"github.com/lia-lab/lia-sync/internal/core/aggregation"
)

// Job is one pipeline run. It returns an error the scheduler inspects with
// the configured retry predicate.
type Job func(ctx context.Context) error

// Scheduler fires Job at every local top of hour. After a retryable failure
// it fires again after RetryDelay instead of waiting for the next hour.
type Scheduler struct {
	clock      aggregation.Clock
	job        Job
	retryDelay time.Duration
	retryable  func(error) bool

	nowFn   func() time.Time
	afterFn func(time.Duration) <-chan time.Time
}

// NewScheduler creates a scheduler. retryable may be nil, in which case no
// failure is retried early.
func NewScheduler(clock aggregation.Clock, job Job, retryDelay time.Duration, retryable func(error) bool) *Scheduler {
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &Scheduler{
		clock:      clock,
		job:        job,
		retryDelay: retryDelay,
		retryable:  retryable,
		nowFn:      time.Now,
		afterFn:    time.After,
	}
}

// Start runs the job once immediately to catch up on the last completed
// hour, then on schedule until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[Scheduler] Starting hourly upload scheduler",
		"retry_delay", s.retryDelay,
		"timezone", s.clock.Location().String(),
	)

	next := s.runOnce(ctx)
	for {
		wait := next.Sub(s.nowFn())
		if wait < 0 {
			wait = 0
		}
		slog.Debug("[Scheduler] Next run armed", "at", next.Format(time.RFC3339), "in", wait)

		select {
		case <-s.afterFn(wait):
			next = s.runOnce(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

// runOnce runs the job and returns when the next run is due.
func (s *Scheduler) runOnce(ctx context.Context) time.Time {
	err := s.job(ctx)
	now := s.nowFn()

	switch {
	case err == nil:
		return s.clock.NextTopOfHour(now)
	case ctx.Err() != nil:
		return s.clock.NextTopOfHour(now)
	case s.retryable(err):
		slog.Warn("[Scheduler] Run failed, retrying", "error", err, "retry_in", s.retryDelay)
		return now.Add(s.retryDelay)
	default:
		slog.Error("[Scheduler] Run failed", "error", err)
		return s.clock.NextTopOfHour(now)
	}
}
