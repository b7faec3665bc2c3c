package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
)

// Persisted key/value namespaces and keys. The names match what the mobile
// client used, so state migrated from it keeps working.
const (
	NamespaceAppPrefs = "appPrefs"
	NamespaceAuth     = "auth"

	KeyLastUploadTime      = "lastUploadTime"
	KeyLastUploadWindow    = "lastUploadWindow"
	KeyLastUploadErrorTime = "lastUploadErrorTime"
	KeyJWTToken            = "jwt_token"
)

var (
	// ErrNotFound is returned by KVStore.Get for a key that was never written.
	ErrNotFound = errors.New("key not found")

	// ErrDuplicate is returned when a sample or session with the same id already exists.
	ErrDuplicate = errors.New("record already exists")
)

// KVStore is small string key/value state split into namespaces.
// SetMany writes all values of one call atomically: a concurrent Get sees
// either none or all of them.
type KVStore interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	SetMany(ctx context.Context, namespace string, values map[string]string) error
	Close() error
	Locker
}

// Locker hands out named exclusive locks. Whether the exclusion reaches other
// processes depends on the backend: postgres (advisory lock), redis (SET NX
// lease) and blob (conditional lock object) exclude every process sharing the
// store, MemoryKV only excludes callers inside one process.
type Locker interface {
	// Lock blocks until name is held or ctx is done. The returned func
	// releases the lock and is safe to call more than once.
	Lock(ctx context.Context, name string) (unlock func(), err error)
}

// SampleStore holds raw readings pushed by the device bridge.
type SampleStore interface {
	SaveSample(ctx context.Context, sample *v1.Sample) error
	SaveSleepSession(ctx context.Context, session *v1.SleepSession) error

	// RetrieveSamples returns samples of one metric with start <= time <= end,
	// ordered by time. Callers apply exact window bounds themselves.
	RetrieveSamples(ctx context.Context, metric v1.Metric, start, end time.Time) ([]v1.Sample, error)

	// RetrieveSleepSessions returns sessions with start <= session start <= end,
	// ordered by start.
	RetrieveSleepSessions(ctx context.Context, start, end time.Time) ([]v1.SleepSession, error)
}

// GetOptional wraps Get and maps ErrNotFound to ("", false, nil).
func GetOptional(ctx context.Context, kv KVStore, namespace, key string) (string, bool, error) {
	v, err := kv.Get(ctx, namespace, key)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
