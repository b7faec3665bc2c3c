package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lia-lab/lia-sync/internal/core/storage"
)

const releaseTimeout = 5 * time.Second

// KVAdapter implements storage.KVStore on the kv_state table.
// SetMany writes all keys in one transaction, so readers never observe a
// window key without its matching upload time.
type KVAdapter struct {
	db    *sql.DB
	nowFn func() time.Time
}

// NewKVAdapter creates a KVAdapter sharing the given connection.
func NewKVAdapter(db *sql.DB) *KVAdapter {
	return &KVAdapter{db: db, nowFn: time.Now}
}

func (a *KVAdapter) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := a.db.QueryRowContext(ctx, queryGetState, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

func (a *KVAdapter) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv set: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, queryLockNamespace, namespace); err != nil {
		return fmt.Errorf("kv set: lock namespace %s: %w", namespace, err)
	}

	stmt, err := tx.PrepareContext(ctx, queryUpsertState)
	if err != nil {
		return fmt.Errorf("kv set: prepare upsert: %w", err)
	}
	defer stmt.Close()

	// Sorted for a stable statement order across writers.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := a.nowFn().UTC()
	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, namespace, k, values[k], now); err != nil {
			return fmt.Errorf("kv set: upsert %s/%s: %w", namespace, k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kv set: commit: %w", err)
	}

	slog.Debug("[KVAdapter] Wrote state", "namespace", namespace, "keys", keys)
	return nil
}

// Lock takes a session advisory lock on a dedicated connection, so every
// process sharing the database is excluded until unlock.
func (a *KVAdapter) Lock(ctx context.Context, name string) (func(), error) {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("kv lock %s: acquire connection: %w", name, err)
	}
	if _, err := conn.ExecContext(ctx, queryAcquireLock, name); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kv lock %s: %w", name, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if _, err := conn.ExecContext(releaseCtx, queryReleaseLock, name); err != nil {
				// Closing the session drops the lock server-side anyway.
				slog.Warn("[KVAdapter] Failed to release lock", "name", name, "error", err)
			}
			conn.Close()
		})
	}, nil
}

// Close is a no-op: the connection belongs to the sample Adapter.
func (a *KVAdapter) Close() error { return nil }
