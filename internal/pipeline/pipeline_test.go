package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	coreagg "github.com/lia-lab/lia-sync/internal/core/aggregation"
	"github.com/lia-lab/lia-sync/internal/core/cipher"
	"github.com/lia-lab/lia-sync/internal/core/storage"
	"github.com/lia-lab/lia-sync/internal/dedup"
	sourcemocks "github.com/lia-lab/lia-sync/internal/mocks/source"
	"github.com/lia-lab/lia-sync/internal/payload"
	"github.com/lia-lab/lia-sync/internal/source"
	"github.com/lia-lab/lia-sync/internal/uploader"
)

// recordingSender stands in for the HTTP uploader and keeps every payload.
type recordingSender struct {
	mu      sync.Mutex
	calls   []v1.HealthPayloadEncrypted
	status  int
	sendErr error
	waitErr error
	delay   time.Duration
}

func (r *recordingSender) Send(_ context.Context, p v1.HealthPayloadEncrypted) (*uploader.Dispatch, error) {
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, p)
	if r.sendErr != nil {
		return nil, r.sendErr
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	res := uploader.Result{RequestID: fmt.Sprintf("req-%d", len(r.calls)), StatusCode: status}
	return uploader.Completed(res, r.waitErr), nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type failingEncrypter struct{}

func (failingEncrypter) Encrypt(string) (string, error) { return "", errors.New("no key") }

type fixture struct {
	pipeline *Pipeline
	store    *storage.MemorySampleStore
	kv       *storage.MemoryKV
	guard    *dedup.Guard
	sender   *recordingSender
	cipher   *cipher.ECB
	clock    coreagg.Clock
	now      time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	c, err := cipher.New(cipher.DefaultKey)
	require.NoError(t, err)

	f := &fixture{
		store:  storage.NewMemorySampleStore(),
		kv:     storage.NewMemoryKV(),
		sender: &recordingSender{},
		cipher: c,
		clock:  coreagg.NewClock(time.UTC),
		now:    time.Date(2026, 2, 8, 10, 5, 0, 0, time.UTC),
	}
	f.guard = dedup.New(f.kv, time.UTC)
	reader := source.NewStoreReader(f.store, source.Options{Required: v1.AllMetrics, Granted: v1.AllMetrics})
	f.pipeline = New(f.clock, reader, f.guard, c, f.sender, cfg)
	f.pipeline.nowFn = func() time.Time { return f.now }
	return f
}

func (f *fixture) addSteps(t *testing.T, id string, at time.Time, count int64) {
	t.Helper()
	require.NoError(t, f.store.SaveSample(context.Background(), &v1.Sample{ID: id, Metric: v1.MetricSteps, Time: at, Count: count}))
}

func TestRunScheduled_UploadsStepsOfLastHour(t *testing.T) {
	f := newFixture(t, Config{})
	f.addSteps(t, "a", time.Date(2026, 2, 8, 9, 15, 0, 0, time.UTC), 50)
	f.addSteps(t, "b", time.Date(2026, 2, 8, 9, 47, 0, 0, time.UTC), 30)
	f.addSteps(t, "late", time.Date(2026, 2, 8, 10, 1, 0, 0, time.UTC), 999)

	report, err := f.pipeline.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, report.Outcome)
	assert.Equal(t, f.clock.CurrentHourWindow(f.now).Key(), report.Window)

	require.Equal(t, 1, f.sender.count())
	steps := f.sender.calls[0].StepData
	require.Len(t, steps, 1)
	assert.Equal(t, "2026-02-08", steps[0].Date)
	assert.Equal(t, "09:00", steps[0].Time)

	plain, err := f.cipher.Decrypt(steps[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "80", plain)

	st, err := f.guard.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Window, st.LastUploadWindow)
	assert.Equal(t, "2026-02-08 10:05", st.LastUploadTime)
}

func TestRunScheduled_SecondRunForSameWindowDoesNotSend(t *testing.T) {
	f := newFixture(t, Config{})
	f.addSteps(t, "a", time.Date(2026, 2, 8, 9, 15, 0, 0, time.UTC), 50)

	first, err := f.pipeline.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, first.Outcome)

	f.now = f.now.Add(20 * time.Minute)
	second, err := f.pipeline.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)

	assert.Equal(t, 1, f.sender.count())
}

func TestRunScheduled_DedupKey(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	window := f.clock.CurrentHourWindow(f.now)

	require.NoError(t, f.guard.MarkSuccess(ctx, window.Key(), f.now))
	report, err := f.pipeline.RunScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, report.Outcome)
	assert.Zero(t, f.sender.count())

	// The next hour has a different key and proceeds.
	f.now = f.now.Add(time.Hour)
	report, err = f.pipeline.RunScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, report.Outcome)
	assert.Equal(t, 1, f.sender.count())
}

func TestRunScheduled_ConcurrentRunsSendOnce(t *testing.T) {
	f := newFixture(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pipeline.RunScheduled(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.sender.count())
}

func TestRunScheduled_PipelinesSharingAStoreSendOnce(t *testing.T) {
	f := newFixture(t, Config{})
	f.sender.delay = 50 * time.Millisecond

	// A second agent with its own guard over the same state store.
	reader := source.NewStoreReader(f.store, source.Options{Required: v1.AllMetrics, Granted: v1.AllMetrics})
	other := New(f.clock, reader, dedup.New(f.kv, time.UTC), f.cipher, f.sender, Config{})
	other.nowFn = f.pipeline.nowFn

	outcomes := make(chan Outcome, 2)
	var wg sync.WaitGroup
	for _, p := range []*Pipeline{f.pipeline, other} {
		wg.Add(1)
		go func(p *Pipeline) {
			defer wg.Done()
			report, err := p.RunScheduled(context.Background())
			assert.NoError(t, err)
			outcomes <- report.Outcome
		}(p)
	}
	wg.Wait()
	close(outcomes)

	assert.Equal(t, 1, f.sender.count())
	var got []Outcome
	for o := range outcomes {
		got = append(got, o)
	}
	assert.ElementsMatch(t, []Outcome{OutcomeUploaded, OutcomeDuplicate}, got)
}

func TestRunScheduled_LockTimeoutIsRetryable(t *testing.T) {
	f := newFixture(t, Config{})
	unlock, err := dedup.New(f.kv, time.UTC).Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.pipeline.RunScheduled(ctx)
	require.ErrorIs(t, err, ErrRetryable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, f.sender.count())
}

func TestRunScheduled_NoAccessIsNoop(t *testing.T) {
	reader := sourcemocks.NewReader(t)
	reader.EXPECT().HasRequiredAccess(mock.Anything).Return(false, nil).Once()

	kv := storage.NewMemoryKV()
	sender := &recordingSender{}
	p := New(coreagg.NewClock(time.UTC), reader, dedup.New(kv, time.UTC), failingEncrypter{}, sender, Config{})

	report, err := p.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAccess, report.Outcome)
	assert.Zero(t, sender.count())
}

func TestRunScheduled_PartialGrantUploadsGrantedMetrics(t *testing.T) {
	f := newFixture(t, Config{})
	f.addSteps(t, "a", time.Date(2026, 2, 8, 9, 15, 0, 0, time.UTC), 42)
	require.NoError(t, f.store.SaveSample(context.Background(), &v1.Sample{
		ID: "hr", Metric: v1.MetricHeartRate, Time: time.Date(2026, 2, 8, 9, 20, 0, 0, time.UTC), BPM: 80,
	}))

	steps := []v1.Metric{v1.MetricSteps}
	reader := source.NewStoreReader(f.store, source.Options{Required: steps, Granted: steps})
	f.pipeline.reader = reader

	report, err := f.pipeline.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, report.Outcome)

	require.Equal(t, 1, f.sender.count())
	sent := f.sender.calls[0]
	require.Len(t, sent.StepData, 1)
	plain, err := f.cipher.Decrypt(sent.StepData[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "42", plain)

	// Heart rate was stored but not granted, so none of it is sent.
	for _, hr := range sent.HeartRateData {
		bpm, err := f.cipher.Decrypt(hr.BPM)
		require.NoError(t, err)
		assert.NotEqual(t, "80.0", bpm)
	}

	st, err := f.guard.State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.LastUploadErrorTime)
}

func TestRunScheduled_ReadFailureIsRetryable(t *testing.T) {
	reader := sourcemocks.NewReader(t)
	reader.EXPECT().HasRequiredAccess(mock.Anything).Return(true, nil).Once()
	reader.EXPECT().ReadSamples(mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("source offline")).Maybe()
	reader.EXPECT().ReadSleepSessions(mock.Anything, mock.Anything).
		Return(nil, errors.New("source offline")).Maybe()

	kv := storage.NewMemoryKV()
	guard := dedup.New(kv, time.UTC)
	sender := &recordingSender{}
	p := New(coreagg.NewClock(time.UTC), reader, guard, failingEncrypter{}, sender, Config{})

	_, err := p.RunScheduled(context.Background())
	require.ErrorIs(t, err, ErrRetryable)
	assert.Contains(t, err.Error(), "source offline")
	assert.Zero(t, sender.count())

	st, err := guard.State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.LastUploadWindow)
	assert.NotEmpty(t, st.LastUploadErrorTime)
}

func TestRunScheduled_SerializationFailureIsTerminal(t *testing.T) {
	f := newFixture(t, Config{})
	f.pipeline.enc = failingEncrypter{}

	_, err := f.pipeline.RunScheduled(context.Background())
	require.ErrorIs(t, err, payload.ErrSerialization)
	assert.NotErrorIs(t, err, ErrRetryable)
	assert.Zero(t, f.sender.count())

	st, err := f.guard.State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.LastUploadWindow)
	assert.Equal(t, "2026-02-08 10:05", st.LastUploadErrorTime)
}

func TestRunScheduled_FireAndForgetMarksDespiteTransportFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.sender.waitErr = uploader.ErrTransport

	report, err := f.pipeline.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, report.Outcome)

	st, err := f.guard.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Window, st.LastUploadWindow)
}

func TestRunScheduled_AwaitedTransportFailureLeavesWindowUnmarked(t *testing.T) {
	f := newFixture(t, Config{AwaitScheduled: true})
	f.sender.waitErr = fmt.Errorf("%w: connection refused", uploader.ErrTransport)

	_, err := f.pipeline.RunScheduled(context.Background())
	require.ErrorIs(t, err, ErrRetryable)
	require.ErrorIs(t, err, uploader.ErrTransport)

	st, err := f.guard.State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.LastUploadWindow)
	assert.Equal(t, "2026-02-08 10:05", st.LastUploadErrorTime)

	// The same window is attempted again on the next run.
	f.sender.waitErr = nil
	report, err := f.pipeline.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, report.Outcome)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.Equal(t, 2, f.sender.count())
}

func TestRunScheduled_AwaitedServerErrorStillMarks(t *testing.T) {
	f := newFixture(t, Config{AwaitScheduled: true})
	f.sender.status = http.StatusInternalServerError

	report, err := f.pipeline.RunScheduled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUploaded, report.Outcome)
	assert.Equal(t, http.StatusInternalServerError, report.StatusCode)
}

func TestRunRecent_BypassesDedupState(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.addSteps(t, "old", f.now.Add(-47*time.Hour), 5)
	f.addSteps(t, "too-old", f.now.Add(-49*time.Hour), 7)
	f.addSteps(t, "now", f.now, 3)

	for i := 0; i < 2; i++ {
		report, err := f.pipeline.RunRecent(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUploaded, report.Outcome)
	}
	assert.Equal(t, 2, f.sender.count())
	assert.Len(t, f.sender.calls[0].StepData, 2)

	st, err := f.guard.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, dedup.State{}, st)
}

func TestRunRecent_SurfacesTransportFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.sender.waitErr = uploader.ErrTransport

	_, err := f.pipeline.RunRecent(context.Background())
	require.ErrorIs(t, err, ErrRetryable)

	st, err := f.guard.State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.LastUploadErrorTime)
}

func TestPreview_ReturnsPlainPayload(t *testing.T) {
	f := newFixture(t, Config{RecentSpan: 3 * time.Hour})
	f.addSteps(t, "a", time.Date(2026, 2, 8, 8, 30, 0, 0, time.UTC), 12)
	f.addSteps(t, "b", time.Date(2026, 2, 8, 6, 30, 0, 0, time.UTC), 99)

	p, err := f.pipeline.Preview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []v1.DatedTimeValue[int64]{{Date: "2026-02-08", Time: "08:00", Value: 12}}, p.StepData)
	assert.NotNil(t, p.HeartRateData)
	assert.Zero(t, f.sender.count())
}
