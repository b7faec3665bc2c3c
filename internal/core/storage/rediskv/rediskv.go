// Package rediskv stores key/value state in Redis, one hash per namespace.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lia-lab/lia-sync/internal/core/storage"
)

const (
	pingTimeout = 3 * time.Second

	// lockLease bounds how long a crashed holder blocks others. It must
	// outlast one upload including the HTTP timeout.
	lockLease    = 5 * time.Minute
	lockPoll     = 50 * time.Millisecond
	unlockWindow = 3 * time.Second
)

// releaseLock deletes the lock only while it still carries our token, so an
// expired holder cannot drop a lease someone else took over.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store implements storage.KVStore. Each namespace maps to the hash
// "{prefix}{namespace}" and keys are hash fields, so SetMany is a single
// HSET and applies atomically.
type Store struct {
	client *redis.Client
	prefix string
}

// New pings client and wraps it. The store owns client after a successful call.
func New(ctx context.Context, client *redis.Client, prefix string) (*Store, error) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("[RedisKV] Connected", "addr", client.Options().Addr, "prefix", prefix)
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) hashKey(namespace string) string {
	return s.prefix + namespace
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	val, err := s.client.HGet(ctx, s.hashKey(namespace), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("redis hget %s/%s: %w", namespace, key, err)
	}
	return val, nil
}

func (s *Store) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	if err := s.client.HSet(ctx, s.hashKey(namespace), fields).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", namespace, err)
	}
	return nil
}

// Lock takes a SET NX lease on "{prefix}lock:{name}" and polls until it is
// free or ctx is done. Every process sharing the Redis instance and prefix is
// excluded.
func (s *Store) Lock(ctx context.Context, name string) (func(), error) {
	key := s.prefix + "lock:" + name
	token := uuid.NewString()

	for {
		ok, err := s.client.SetNX(ctx, key, token, lockLease).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis lock %s: %w", name, err)
		}
		if ok {
			break
		}
		select {
		case <-time.After(lockPoll):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), unlockWindow)
			defer cancel()
			if err := releaseLock.Run(releaseCtx, s.client, []string{key}, token).Err(); err != nil {
				slog.Warn("[RedisKV] Failed to release lock", "name", name, "error", err)
			}
		})
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
