// Package dedup remembers the last uploaded window so a window is sent at
// most once.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lia-lab/lia-sync/internal/core/storage"
)

// TimestampLayout formats lastUploadTime and lastUploadErrorTime.
const TimestampLayout = "2006-01-02 15:04"

// lockName names the store lock around check-then-mark.
const lockName = "upload-window"

// State is the persisted upload bookkeeping. Empty fields were never written.
type State struct {
	LastUploadWindow    string `json:"lastUploadWindow,omitempty"`
	LastUploadTime      string `json:"lastUploadTime,omitempty"`
	LastUploadErrorTime string `json:"lastUploadErrorTime,omitempty"`
}

// Guard reads and writes upload state in the appPrefs namespace.
//
// A caller that checks and then marks must hold Lock for the whole sequence,
// otherwise two runs for the same window can both pass ShouldSkip. The lock
// lives in the store, so its reach is the backend's: the postgres, redis and
// blob stores exclude every process sharing them, while the memory store
// only excludes Guards over the same MemoryKV inside one process.
type Guard struct {
	kv  storage.KVStore
	loc *time.Location
}

// New creates a Guard formatting timestamps in loc (time.Local when nil).
func New(kv storage.KVStore, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.Local
	}
	return &Guard{kv: kv, loc: loc}
}

// Lock acquires the check-then-mark boundary in the store and returns its
// release func. It blocks while another Guard holds it, until ctx is done.
func (g *Guard) Lock(ctx context.Context) (unlock func(), err error) {
	unlock, err = g.kv.Lock(ctx, lockName)
	if err != nil {
		return nil, fmt.Errorf("acquire upload lock: %w", err)
	}
	return unlock, nil
}

// ShouldSkip reports whether windowKey is the last successfully uploaded window.
func (g *Guard) ShouldSkip(ctx context.Context, windowKey string) (bool, error) {
	last, ok, err := storage.GetOptional(ctx, g.kv, storage.NamespaceAppPrefs, storage.KeyLastUploadWindow)
	if err != nil {
		return false, fmt.Errorf("read last upload window: %w", err)
	}
	return ok && last == windowKey, nil
}

// MarkSuccess records windowKey as uploaded at the given time. Both keys are
// written in one SetMany.
func (g *Guard) MarkSuccess(ctx context.Context, windowKey string, at time.Time) error {
	ts := g.format(at)
	err := g.kv.SetMany(ctx, storage.NamespaceAppPrefs, map[string]string{
		storage.KeyLastUploadWindow: windowKey,
		storage.KeyLastUploadTime:   ts,
	})
	if err != nil {
		return fmt.Errorf("mark upload success: %w", err)
	}
	slog.Info("[DedupGuard] Window marked uploaded", "window", windowKey, "at", ts)
	return nil
}

// MarkFailure records the error time only. The last window is left alone so
// the failed window is attempted again.
func (g *Guard) MarkFailure(ctx context.Context, at time.Time) error {
	ts := g.format(at)
	err := g.kv.SetMany(ctx, storage.NamespaceAppPrefs, map[string]string{
		storage.KeyLastUploadErrorTime: ts,
	})
	if err != nil {
		return fmt.Errorf("mark upload failure: %w", err)
	}
	slog.Warn("[DedupGuard] Upload failure recorded", "at", ts)
	return nil
}

// State returns the persisted bookkeeping.
func (g *Guard) State(ctx context.Context) (State, error) {
	var st State
	fields := []struct {
		key string
		dst *string
	}{
		{storage.KeyLastUploadWindow, &st.LastUploadWindow},
		{storage.KeyLastUploadTime, &st.LastUploadTime},
		{storage.KeyLastUploadErrorTime, &st.LastUploadErrorTime},
	}
	for _, f := range fields {
		v, _, err := storage.GetOptional(ctx, g.kv, storage.NamespaceAppPrefs, f.key)
		if err != nil {
			return State{}, fmt.Errorf("read %s: %w", f.key, err)
		}
		*f.dst = v
	}
	return st, nil
}

func (g *Guard) format(t time.Time) string {
	return t.In(g.loc).Format(TimestampLayout)
}
