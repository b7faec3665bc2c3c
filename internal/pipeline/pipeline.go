// Package pipeline runs one upload: read the window, aggregate, encrypt,
// dispatch and record the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lia-lab/lia-sync/internal/aggregation"
	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	coreagg "github.com/lia-lab/lia-sync/internal/core/aggregation"
	"github.com/lia-lab/lia-sync/internal/dedup"
	"github.com/lia-lab/lia-sync/internal/payload"
	"github.com/lia-lab/lia-sync/internal/source"
	"github.com/lia-lab/lia-sync/internal/uploader"
)

// DefaultRecentSpan is the on-demand upload range.
const DefaultRecentSpan = 48 * time.Hour

// ErrRetryable marks a failed run that should be attempted again later.
var ErrRetryable = errors.New("upload run failed, retry later")

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeUploaded  Outcome = "uploaded"
	OutcomeNoAccess  Outcome = "no_access"
	OutcomeDuplicate Outcome = "duplicate"
)

// Report describes a finished run.
type Report struct {
	RunID      string  `json:"run_id"`
	Outcome    Outcome `json:"outcome"`
	Window     string  `json:"window,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
}

// Sender dispatches an encrypted payload.
type Sender interface {
	Send(ctx context.Context, p v1.HealthPayloadEncrypted) (*uploader.Dispatch, error)
}

// Config holds run options.
type Config struct {
	// RecentSpan is the range of RunRecent and Preview.
	RecentSpan time.Duration

	// AwaitScheduled makes RunScheduled wait for the server before marking
	// the window uploaded. Off, the window is marked once the request is
	// dispatched and a server-side rejection is never retried.
	AwaitScheduled bool
}

// Pipeline wires the upload stages together. It is safe for concurrent use;
// scheduled runs serialize on the dedup guard.
type Pipeline struct {
	clock  coreagg.Clock
	reader source.Reader
	guard  *dedup.Guard
	enc    payload.Encrypter
	sender Sender
	cfg    Config
	nowFn  func() time.Time
}

// New creates a Pipeline.
func New(clock coreagg.Clock, reader source.Reader, guard *dedup.Guard, enc payload.Encrypter, sender Sender, cfg Config) *Pipeline {
	if cfg.RecentSpan <= 0 {
		cfg.RecentSpan = DefaultRecentSpan
	}
	return &Pipeline{
		clock:  clock,
		reader: reader,
		guard:  guard,
		enc:    enc,
		sender: sender,
		cfg:    cfg,
		nowFn:  time.Now,
	}
}

// RunScheduled uploads the last completed hour unless it was already sent.
//
// Every failure after the dedup check records lastUploadErrorTime and leaves
// the window unmarked. Failures wrap ErrRetryable except payload
// serialization errors, which would fail again on retry.
func (p *Pipeline) RunScheduled(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := slog.With("run_id", report.RunID, "path", "scheduled")

	ok, err := p.reader.HasRequiredAccess(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: check access: %w", ErrRetryable, err)
	}
	if !ok {
		log.Info("[Pipeline] Required access missing, skipping run")
		report.Outcome = OutcomeNoAccess
		return report, nil
	}

	now := p.nowFn()
	window := p.clock.CurrentHourWindow(now)
	report.Window = window.Key()
	log = log.With("window", report.Window)

	unlock, err := p.guard.Lock(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	defer unlock()

	skip, err := p.guard.ShouldSkip(ctx, report.Window)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	if skip {
		log.Info("[Pipeline] Window already uploaded, skipping")
		report.Outcome = OutcomeDuplicate
		return report, nil
	}

	d, err := p.buildAndSend(ctx, window)
	if err != nil {
		return report, p.fail(ctx, log, err)
	}
	report.RequestID = d.RequestID

	if p.cfg.AwaitScheduled {
		res, err := d.Wait(ctx)
		if err != nil {
			return report, p.fail(ctx, log, err)
		}
		report.StatusCode = res.StatusCode
	}

	if err := p.guard.MarkSuccess(ctx, report.Window, p.nowFn()); err != nil {
		return report, fmt.Errorf("%w: %w", ErrRetryable, err)
	}

	log.Info("[Pipeline] Window uploaded", "request_id", report.RequestID)
	report.Outcome = OutcomeUploaded
	return report, nil
}

// RunRecent uploads the recent span and waits for the server. It neither
// reads nor writes dedup state.
func (p *Pipeline) RunRecent(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := slog.With("run_id", report.RunID, "path", "recent")

	ok, err := p.reader.HasRequiredAccess(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: check access: %w", ErrRetryable, err)
	}
	if !ok {
		log.Info("[Pipeline] Required access missing, skipping run")
		report.Outcome = OutcomeNoAccess
		return report, nil
	}

	window := p.clock.RecentWindow(p.nowFn(), p.cfg.RecentSpan)
	report.Window = window.Key()

	d, err := p.buildAndSend(ctx, window)
	if err != nil {
		return report, err
	}
	report.RequestID = d.RequestID

	res, err := d.Wait(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	report.StatusCode = res.StatusCode
	report.Outcome = OutcomeUploaded

	log.Info("[Pipeline] Recent data uploaded",
		"window", window.String(),
		"request_id", report.RequestID,
		"status", res.StatusCode,
	)
	return report, nil
}

// Preview returns the plaintext payload of the recent span without sending it.
func (p *Pipeline) Preview(ctx context.Context) (v1.HealthPayload, error) {
	ok, err := p.reader.HasRequiredAccess(ctx)
	if err != nil {
		return v1.HealthPayload{}, err
	}
	if !ok {
		return v1.HealthPayload{}, source.ErrNoAccess
	}

	window := p.clock.RecentWindow(p.nowFn(), p.cfg.RecentSpan)
	agg, err := p.aggregate(ctx, window)
	if err != nil {
		return v1.HealthPayload{}, err
	}
	return payload.BuildPlain(agg), nil
}

func (p *Pipeline) buildAndSend(ctx context.Context, window coreagg.Window) (*uploader.Dispatch, error) {
	agg, err := p.aggregate(ctx, window)
	if err != nil {
		return nil, err
	}

	enc, err := payload.BuildEncrypted(agg, p.enc)
	if err != nil {
		return nil, err
	}

	d, err := p.sender.Send(ctx, enc)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return d, nil
}

// aggregate reads every metric concurrently and reduces them. The first read
// error cancels the remaining reads.
func (p *Pipeline) aggregate(ctx context.Context, window coreagg.Window) (aggregation.Aggregates, error) {
	metrics := []v1.Metric{v1.MetricSteps, v1.MetricCalories, v1.MetricDistance, v1.MetricHeartRate}
	samples := make([][]v1.Sample, len(metrics))
	var sessions []v1.SleepSession

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range metrics {
		g.Go(func() error {
			s, err := p.reader.ReadSamples(gctx, m, window)
			if err != nil {
				return fmt.Errorf("read %s: %w", m, err)
			}
			samples[i] = s
			return nil
		})
	}
	g.Go(func() error {
		s, err := p.reader.ReadSleepSessions(gctx, window)
		if err != nil {
			return fmt.Errorf("read sleep: %w", err)
		}
		sessions = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return aggregation.Aggregates{}, err
	}

	in := aggregation.Inputs{
		Samples:  make(map[v1.Metric][]v1.Sample, len(metrics)),
		Sessions: sessions,
	}
	for i, m := range metrics {
		in.Samples[m] = samples[i]
	}
	return aggregation.Compute(p.clock, window, in)
}

// fail records the error time and classifies err.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, err error) error {
	log.Error("[Pipeline] Upload failed", "error", err)
	if markErr := p.guard.MarkFailure(ctx, p.nowFn()); markErr != nil {
		log.Error("[Pipeline] Failed to record failure time", "error", markErr)
	}
	if errors.Is(err, payload.ErrSerialization) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
