package rediskv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/lia-lab/lia-sync/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store, err := New(context.Background(), client, "lia:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return mr, store
}

func TestStore_GetMissing(t *testing.T) {
	_, store := setupTestRedis(t)

	_, err := store.Get(context.Background(), storage.NamespaceAppPrefs, storage.KeyLastUploadWindow)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_SetManyThenGet(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	err := store.SetMany(ctx, storage.NamespaceAppPrefs, map[string]string{
		storage.KeyLastUploadWindow: "100-3700",
		storage.KeyLastUploadTime:   "2026-02-08 21:00",
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, storage.NamespaceAppPrefs, storage.KeyLastUploadWindow)
	require.NoError(t, err)
	assert.Equal(t, "100-3700", got)

	// Stored as fields of a single hash per namespace.
	assert.Equal(t, "2026-02-08 21:00", mr.HGet("lia:appPrefs", storage.KeyLastUploadTime))
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SetMany(ctx, storage.NamespaceAuth, map[string]string{storage.KeyJWTToken: "tok"}))

	_, err := store.Get(ctx, storage.NamespaceAppPrefs, storage.KeyJWTToken)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_SetManyOverwrites(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.SetMany(ctx, storage.NamespaceAuth, map[string]string{storage.KeyJWTToken: "old"}))
	require.NoError(t, store.SetMany(ctx, storage.NamespaceAuth, map[string]string{storage.KeyJWTToken: "new"}))

	got, err := store.Get(ctx, storage.NamespaceAuth, storage.KeyJWTToken)
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestNew_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()

	_, err := New(context.Background(), client, "lia:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestStore_LockExcludesSecondHolder(t *testing.T) {
	mr, store := setupTestRedis(t)

	unlock, err := store.Lock(context.Background(), "upload-window")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lia:lock:upload-window"))

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = store.Lock(ctx, "upload-window")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("lia:lock:upload-window"))

	again, err := store.Lock(context.Background(), "upload-window")
	require.NoError(t, err)
	again()
}

func TestStore_LockLeaseExpiresAndStaleUnlockIsHarmless(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	stale, err := store.Lock(ctx, "upload-window")
	require.NoError(t, err)

	mr.FastForward(lockLease + time.Second)

	fresh, err := store.Lock(ctx, "upload-window")
	require.NoError(t, err)

	// The expired holder must not release the new lease.
	stale()
	assert.True(t, mr.Exists("lia:lock:upload-window"))

	fresh()
	assert.False(t, mr.Exists("lia:lock:upload-window"))
}
