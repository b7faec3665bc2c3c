// Package source reads raw samples for a window from the device data source.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/core/aggregation"
	"github.com/lia-lab/lia-sync/internal/core/storage"
)

// DefaultLookback is how far back the device exposes history.
const DefaultLookback = 10 * 24 * time.Hour

// ErrNoAccess reports that the required metrics are not all granted.
var ErrNoAccess = errors.New("no read access to metric")

// Reader is the data source seen by the upload pipeline.
type Reader interface {
	// HasRequiredAccess reports whether every required metric may be read.
	HasRequiredAccess(ctx context.Context) (bool, error)

	// ReadSamples returns one metric's samples for window. Callers filter to
	// exact window bounds themselves. An ungranted metric reads as empty;
	// HasRequiredAccess is the only access gate.
	ReadSamples(ctx context.Context, metric v1.Metric, window aggregation.Window) ([]v1.Sample, error)

	// ReadSleepSessions returns sessions that started in window.
	ReadSleepSessions(ctx context.Context, window aggregation.Window) ([]v1.SleepSession, error)
}

// Options configures a StoreReader.
type Options struct {
	// Required metrics must all be granted for HasRequiredAccess.
	Required []v1.Metric
	// Granted metrics may be read.
	Granted []v1.Metric
	// Lookback clamps reads to [now-Lookback, ...]. Zero disables clamping.
	Lookback time.Duration
}

// StoreReader serves reads from the sample store filled by the ingestion API.
type StoreReader struct {
	store    storage.SampleStore
	required []v1.Metric
	granted  map[v1.Metric]bool
	lookback time.Duration
	nowFn    func() time.Time
}

// NewStoreReader creates a StoreReader over store.
func NewStoreReader(store storage.SampleStore, opts Options) *StoreReader {
	granted := make(map[v1.Metric]bool, len(opts.Granted))
	for _, m := range opts.Granted {
		granted[m] = true
	}
	return &StoreReader{
		store:    store,
		required: opts.Required,
		granted:  granted,
		lookback: opts.Lookback,
		nowFn:    time.Now,
	}
}

func (r *StoreReader) HasRequiredAccess(_ context.Context) (bool, error) {
	for _, m := range r.required {
		if !r.granted[m] {
			slog.Debug("[Source] Required metric not granted", "metric", m)
			return false, nil
		}
	}
	return true, nil
}

func (r *StoreReader) ReadSamples(ctx context.Context, metric v1.Metric, window aggregation.Window) ([]v1.Sample, error) {
	if !r.granted[metric] {
		slog.Debug("[Source] Metric not granted, reading nothing", "metric", metric)
		return nil, nil
	}
	start, end := r.bounds(window)
	if end.Before(start) {
		return nil, nil
	}
	samples, err := r.store.RetrieveSamples(ctx, metric, start, end)
	if err != nil {
		return nil, fmt.Errorf("read %s samples: %w", metric, err)
	}
	return samples, nil
}

func (r *StoreReader) ReadSleepSessions(ctx context.Context, window aggregation.Window) ([]v1.SleepSession, error) {
	if !r.granted[v1.MetricSleep] {
		slog.Debug("[Source] Metric not granted, reading nothing", "metric", v1.MetricSleep)
		return nil, nil
	}
	start, end := r.bounds(window)
	if end.Before(start) {
		return nil, nil
	}
	sessions, err := r.store.RetrieveSleepSessions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read sleep sessions: %w", err)
	}
	return sessions, nil
}

func (r *StoreReader) bounds(window aggregation.Window) (time.Time, time.Time) {
	start := window.Start
	if r.lookback > 0 {
		if floor := r.nowFn().Add(-r.lookback); start.Before(floor) {
			start = floor
		}
	}
	return start, window.End
}
