package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
)

// MemoryKV is an in-memory KVStore. State is lost on restart, so it only
// suits tests and one-shot runs.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]map[string]string

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data:  make(map[string]map[string]string),
		locks: make(map[string]chan struct{}),
	}
}

func (m *MemoryKV) Get(_ context.Context, namespace, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) SetMany(_ context.Context, namespace string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string]string, len(values))
		m.data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = v
	}
	return nil
}

func (m *MemoryKV) Close() error { return nil }

// Lock excludes other callers of the same MemoryKV only.
func (m *MemoryKV) Lock(ctx context.Context, name string) (func(), error) {
	m.locksMu.Lock()
	sem, ok := m.locks[name]
	if !ok {
		sem = make(chan struct{}, 1)
		m.locks[name] = sem
	}
	m.locksMu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}

// MemorySampleStore is an in-memory SampleStore.
type MemorySampleStore struct {
	mu       sync.RWMutex
	samples  map[v1.Metric]map[string]v1.Sample
	sessions map[string]v1.SleepSession
}

// NewMemorySampleStore creates an empty in-memory sample store.
func NewMemorySampleStore() *MemorySampleStore {
	return &MemorySampleStore{
		samples:  make(map[v1.Metric]map[string]v1.Sample),
		sessions: make(map[string]v1.SleepSession),
	}
}

func (m *MemorySampleStore) SaveSample(_ context.Context, sample *v1.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.samples[sample.Metric]
	if !ok {
		byID = make(map[string]v1.Sample)
		m.samples[sample.Metric] = byID
	}
	if _, exists := byID[sample.ID]; exists {
		return ErrDuplicate
	}
	byID[sample.ID] = *sample
	return nil
}

func (m *MemorySampleStore) SaveSleepSession(_ context.Context, session *v1.SleepSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return ErrDuplicate
	}
	// Store a copy so callers can't mutate stages after the fact.
	copied := *session
	copied.Stages = append([]v1.SleepStage(nil), session.Stages...)
	m.sessions[session.ID] = copied
	return nil
}

func (m *MemorySampleStore) RetrieveSamples(_ context.Context, metric v1.Metric, start, end time.Time) ([]v1.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []v1.Sample
	for _, s := range m.samples[metric] {
		if s.Time.Before(start) || s.Time.After(end) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time.Equal(out[j].Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].Time.Before(out[j].Time)
	})
	return out, nil
}

func (m *MemorySampleStore) RetrieveSleepSessions(_ context.Context, start, end time.Time) ([]v1.SleepSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []v1.SleepSession
	for _, s := range m.sessions {
		if s.Start.Before(start) || s.Start.After(end) {
			continue
		}
		s.Stages = append([]v1.SleepStage(nil), s.Stages...)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}
