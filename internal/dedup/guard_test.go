package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/lia-lab/lia-sync/internal/core/storage"
	"github.com/lia-lab/lia-sync/internal/core/storage/blobkv"
)

var kst = time.FixedZone("KST", 9*60*60)

func TestGuard_ShouldSkip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	g := New(kv, kst)

	skip, err := g.ShouldSkip(ctx, "100-3700")
	require.NoError(t, err)
	assert.False(t, skip, "nothing uploaded yet")

	require.NoError(t, g.MarkSuccess(ctx, "100-3700", time.Unix(3700, 0)))

	skip, err = g.ShouldSkip(ctx, "100-3700")
	require.NoError(t, err)
	assert.True(t, skip)

	skip, err = g.ShouldSkip(ctx, "3700-7300")
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestGuard_MarkSuccessWritesWindowAndTime(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	g := New(kv, kst)

	at := time.Date(2026, 2, 8, 12, 0, 30, 0, time.UTC)
	require.NoError(t, g.MarkSuccess(ctx, "100-3700", at))

	st, err := g.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{LastUploadWindow: "100-3700", LastUploadTime: "2026-02-08 21:00"}, st)
}

func TestGuard_MarkFailureKeepsWindow(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	g := New(kv, kst)

	require.NoError(t, g.MarkSuccess(ctx, "100-3700", time.Unix(3700, 0)))
	require.NoError(t, g.MarkFailure(ctx, time.Date(2026, 2, 8, 13, 5, 0, 0, time.UTC)))

	st, err := g.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100-3700", st.LastUploadWindow)
	assert.Equal(t, "2026-02-08 22:05", st.LastUploadErrorTime)

	skip, err := g.ShouldSkip(ctx, "3700-7300")
	require.NoError(t, err)
	assert.False(t, skip)
}

type failingKV struct{ storage.KVStore }

func (failingKV) Get(context.Context, string, string) (string, error) {
	return "", errors.New("store offline")
}

func (failingKV) SetMany(context.Context, string, map[string]string) error {
	return errors.New("store offline")
}

func (failingKV) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("store offline")
}

func TestGuard_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	g := New(failingKV{}, kst)

	_, err := g.ShouldSkip(ctx, "k")
	require.Error(t, err)
	require.Error(t, g.MarkSuccess(ctx, "k", time.Now()))
	require.Error(t, g.MarkFailure(ctx, time.Now()))
	_, err = g.State(ctx)
	require.Error(t, err)
	_, err = g.Lock(ctx)
	require.Error(t, err)
}

// uploadOnce runs check-then-mark under the store lock and reports whether
// this caller performed the upload.
func uploadOnce(t *testing.T, g *Guard, window string, hold time.Duration) bool {
	ctx := context.Background()
	unlock, err := g.Lock(ctx)
	if !assert.NoError(t, err) {
		return false
	}
	defer unlock()

	skip, err := g.ShouldSkip(ctx, window)
	if !assert.NoError(t, err) || skip {
		return false
	}
	time.Sleep(hold)
	return assert.NoError(t, g.MarkSuccess(ctx, window, time.Now()))
}

func TestGuard_LockSerializesGuardsSharingAStore(t *testing.T) {
	tests := []struct {
		name   string
		guards func(t *testing.T) []*Guard
	}{
		{
			name: "memory store",
			guards: func(t *testing.T) []*Guard {
				kv := storage.NewMemoryKV()
				gs := make([]*Guard, 8)
				for i := range gs {
					gs[i] = New(kv, kst)
				}
				return gs
			},
		},
		{
			// Separate Store values over one bucket behave like separate processes.
			name: "blob stores over one bucket",
			guards: func(t *testing.T) []*Guard {
				bucket := memblob.OpenBucket(nil)
				t.Cleanup(func() { bucket.Close() })
				gs := make([]*Guard, 8)
				for i := range gs {
					gs[i] = New(blobkv.New(bucket, ""), kst)
				}
				return gs
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var passed atomic.Int32
			var wg sync.WaitGroup
			for _, g := range tt.guards(t) {
				wg.Add(1)
				go func(g *Guard) {
					defer wg.Done()
					if uploadOnce(t, g, "100-3700", 20*time.Millisecond) {
						passed.Add(1)
					}
				}(g)
			}
			wg.Wait()

			assert.Equal(t, int32(1), passed.Load())
		})
	}
}

func TestGuard_LockHonoursContext(t *testing.T) {
	kv := storage.NewMemoryKV()
	holder := New(kv, kst)
	waiter := New(kv, kst)

	unlock, err := holder.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = waiter.Lock(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "acquire upload lock")
}
