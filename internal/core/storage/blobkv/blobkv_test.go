package blobkv

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/lia-lab/lia-sync/internal/core/storage"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s := New(memblob.OpenBucket(nil), "")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetMissing(t *testing.T) {
	s := newMemStore(t)

	_, err := s.Get(context.Background(), storage.NamespaceAppPrefs, storage.KeyLastUploadWindow)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_SetManyThenGet(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetMany(ctx, storage.NamespaceAppPrefs, map[string]string{
		storage.KeyLastUploadWindow: "100-3700",
		storage.KeyLastUploadTime:   "2026-02-08 21:00",
	}))
	require.NoError(t, s.SetMany(ctx, storage.NamespaceAuth, map[string]string{
		storage.KeyJWTToken: "tok",
	}))

	got, err := s.Get(ctx, storage.NamespaceAppPrefs, storage.KeyLastUploadWindow)
	require.NoError(t, err)
	assert.Equal(t, "100-3700", got)

	got, err = s.Get(ctx, storage.NamespaceAuth, storage.KeyJWTToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	data, err := s.bucket.ReadAll(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lastUploadWindow: 100-3700")
}

func TestStore_ConcurrentWritersKeepAllKeys(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%02d", i)
			assert.NoError(t, s.SetMany(ctx, "test", map[string]string{key: "v"}))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		_, err := s.Get(ctx, "test", fmt.Sprintf("k%02d", i))
		assert.NoError(t, err)
	}
}

func TestStore_CorruptDocument(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	require.NoError(t, s.bucket.WriteAll(ctx, DefaultKey, []byte("appPrefs: [unterminated"), nil))

	_, err := s.Get(ctx, storage.NamespaceAppPrefs, storage.KeyLastUploadWindow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode state")
}

func TestOpen_FileBucketPersists(t *testing.T) {
	dir := t.TempDir()
	url := "file://" + filepath.ToSlash(dir)
	ctx := context.Background()

	s, err := Open(ctx, url, "lia.yaml")
	require.NoError(t, err)
	require.NoError(t, s.SetMany(ctx, storage.NamespaceAppPrefs, map[string]string{
		storage.KeyLastUploadTime: "2026-02-08 21:00",
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, url, "lia.yaml")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, storage.NamespaceAppPrefs, storage.KeyLastUploadTime)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-08 21:00", got)
}

func TestStore_LockExcludesOtherStoresOnSameBucket(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	a := New(bucket, "")
	b := New(bucket, "")

	unlock, err := a.Lock(context.Background(), "upload-window")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = b.Lock(ctx, "upload-window")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := b.Lock(context.Background(), "upload-window")
	require.NoError(t, err)
	again()

	exists, err := bucket.Exists(context.Background(), DefaultKey+".upload-window.lock")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_LockTakesOverExpiredLease(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	crashed := New(bucket, "")
	crashed.nowFn = func() time.Time { return time.Now().Add(-2 * lockLease) }
	next := New(bucket, "")

	_, err := crashed.Lock(context.Background(), "upload-window")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := next.Lock(ctx, "upload-window")
	require.NoError(t, err)
	unlock()
}
