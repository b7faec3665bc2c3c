// Package blobkv keeps key/value state as one YAML document in a blob bucket.
//
// Any gocloud.dev bucket URL works; the file:// and mem:// drivers are
// registered here, e.g. "file:///var/lib/lia-sync?create_dir=true".
package blobkv

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	"gocloud.dev/gcerrors"
	"gopkg.in/yaml.v3"

	"github.com/lia-lab/lia-sync/internal/core/storage"
)

// DefaultKey is the object name of the state document.
const DefaultKey = "state.yaml"

const (
	// lockLease lets a new holder take over a lock object left by a crashed
	// process. It must outlast one upload including the HTTP timeout.
	lockLease      = 5 * time.Minute
	lockPoll       = 50 * time.Millisecond
	releaseTimeout = 3 * time.Second
)

// document is the on-disk shape: namespace -> key -> value.
type document map[string]map[string]string

// Store implements storage.KVStore. Writes rewrite the whole document, which
// blob writers publish atomically on Close, so SetMany is all-or-nothing.
type Store struct {
	bucket *blob.Bucket
	key    string

	// mu serializes read-modify-write cycles within the process.
	mu sync.Mutex

	nowFn func() time.Time
}

// Open opens the bucket at url and stores state under key.
func Open(ctx context.Context, url, key string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open state bucket %s: %w", url, err)
	}
	slog.Info("[BlobKV] Opened state bucket", "url", url, "key", key)
	return New(bucket, key), nil
}

// New wraps an already opened bucket. The store owns bucket.
func New(bucket *blob.Bucket, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{bucket: bucket, key: key, nowFn: time.Now}
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	v, ok := doc[namespace][key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	ns := doc[namespace]
	if ns == nil {
		ns = make(map[string]string, len(values))
		doc[namespace] = ns
	}
	for k, v := range values {
		ns[k] = v
	}
	return s.save(ctx, doc)
}

// Lock creates the object "{key}.{name}.lock" with a create-if-absent write
// and polls while it exists. Every process sharing the bucket is excluded.
// The object holds its expiry; an expired one is deleted and contended for
// again.
func (s *Store) Lock(ctx context.Context, name string) (func(), error) {
	lockKey := s.key + "." + name + ".lock"

	for {
		expires := s.nowFn().Add(lockLease).UTC().Format(time.RFC3339)
		err := s.bucket.WriteAll(ctx, lockKey, []byte(expires), &blob.WriterOptions{
			ContentType: "text/plain",
			IfNotExist:  true,
		})
		if err == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if gcerrors.Code(err) != gcerrors.FailedPrecondition {
			return nil, fmt.Errorf("create lock %s: %w", lockKey, err)
		}

		if s.breakExpired(ctx, lockKey) {
			continue
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
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := s.bucket.Delete(releaseCtx, lockKey); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
				slog.Warn("[BlobKV] Failed to release lock", "key", lockKey, "error", err)
			}
		})
	}, nil
}

// breakExpired deletes lockKey when its lease has run out and reports whether
// the caller should try to create it again.
func (s *Store) breakExpired(ctx context.Context, lockKey string) bool {
	data, err := s.bucket.ReadAll(ctx, lockKey)
	if err != nil {
		// Released between our write and this read.
		return gcerrors.Code(err) == gcerrors.NotFound
	}
	expires, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err == nil && s.nowFn().Before(expires) {
		return false
	}
	slog.Warn("[BlobKV] Taking over expired lock", "key", lockKey, "expires", string(data))
	if err := s.bucket.Delete(ctx, lockKey); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return false
	}
	return true
}

func (s *Store) Close() error {
	return s.bucket.Close()
}

func (s *Store) load(ctx context.Context) (document, error) {
	data, err := s.bucket.ReadAll(ctx, s.key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return document{}, nil
		}
		return nil, fmt.Errorf("read state %s: %w", s.key, err)
	}

	doc := document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", s.key, err)
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	w, err := s.bucket.NewWriter(ctx, s.key, &blob.WriterOptions{ContentType: "application/yaml"})
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", s.key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write state to %s: %w", s.key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", s.key, err)
	}
	return nil
}
