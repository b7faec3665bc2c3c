package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lia-lab/lia-sync/internal/core/aggregation"
)

var errRetry = errors.New("retry me")

func TestScheduler_ArmsNextTopOfHourAndRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 2, 8, 10, 20, 0, 0, time.UTC)
	results := []error{nil, errRetry, errors.New("fatal")}
	runs := 0

	job := func(context.Context) error {
		err := results[runs]
		runs++
		return err
	}

	s := NewScheduler(aggregation.NewClock(time.UTC), job, 5*time.Minute,
		func(err error) bool { return errors.Is(err, errRetry) })
	s.nowFn = func() time.Time { return now }

	var waits []time.Duration
	s.afterFn = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		if len(waits) > 2 {
			cancel()
			return nil
		}
		ch := make(chan time.Time, 1)
		ch <- now
		return ch
	}

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, 3, runs)
	assert.Equal(t, []time.Duration{40 * time.Minute, 5 * time.Minute, 40 * time.Minute}, waits)
}

func TestScheduler_NilRetryableNeverRetriesEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 2, 8, 10, 59, 0, 0, time.UTC)
	s := NewScheduler(aggregation.NewClock(time.UTC), func(context.Context) error { return errRetry }, 7*time.Minute, nil)
	s.nowFn = func() time.Time { return now }

	var waits []time.Duration
	s.afterFn = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		cancel()
		return nil
	}

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, []time.Duration{time.Minute}, waits)
}
