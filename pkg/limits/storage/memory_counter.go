package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCounterStore implements CounterStore in memory. It is the
// "memory" counters backend for single-instance deployments and the test
// double exercising the full admission filter chain.
//
// It is not a drop-in production replacement for Redis across multiple
// instances: counters are process-local. It reproduces the evaluate
// atomicity contract via a single mutex guarding the whole operation,
// which is sufficient because there is only one process to serialize
// against.
type MemoryCounterStore struct {
	mu      sync.Mutex
	clock   func() time.Time
	counts  map[string]int64
	expires map[string]time.Time
	cache   map[string]cacheEntry
}

// NewMemoryCounterStore returns an empty in-memory counter store using the
// real wall clock.
func NewMemoryCounterStore() *MemoryCounterStore {
	return NewMemoryCounterStoreWithClock(time.Now)
}

// NewMemoryCounterStoreWithClock returns an empty in-memory counter store
// using the given clock function, for deterministic TTL tests.
func NewMemoryCounterStoreWithClock(clock func() time.Time) *MemoryCounterStore {
	return &MemoryCounterStore{
		clock:   clock,
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
		cache:   make(map[string]cacheEntry),
	}
}

func (m *MemoryCounterStore) getLocked(key string) int64 {
	if exp, ok := m.expires[key]; ok && !m.clock().Before(exp) {
		delete(m.counts, key)
		delete(m.expires, key)
		return 0
	}
	return m.counts[key]
}

func (m *MemoryCounterStore) ttlLocked(key string) time.Duration {
	exp, ok := m.expires[key]
	if !ok {
		return 0
	}
	remaining := exp.Sub(m.clock())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Evaluate mirrors evaluate.lua's two-phase read-then-write logic under a
// single mutex, which is what makes it atomic on a single process.
func (m *MemoryCounterStore) Evaluate(ctx context.Context, keys []string, ceilings []int64, ttls []time.Duration) (*EvalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, key := range keys {
		if ceilings[i] <= 0 {
			continue
		}
		current := m.getLocked(key)
		if current >= ceilings[i] {
			return &EvalResult{
				Admitted:           false,
				FailedIndex:        i,
				CurrentCount:       current,
				Ceiling:            ceilings[i],
				ResidualTTLSeconds: int64(m.ttlLocked(key).Seconds()),
			}, nil
		}
	}

	var maxTTL int64
	postCounts := make([]int64, len(keys))
	for i, key := range keys {
		if ceilings[i] <= 0 {
			continue
		}
		current := m.getLocked(key)
		if current == 0 {
			m.expires[key] = m.clock().Add(ttls[i])
		}
		m.counts[key] = current + 1
		postCounts[i] = current + 1
		if residual := int64(m.ttlLocked(key).Seconds()); residual > maxTTL {
			maxTTL = residual
		}
	}

	return &EvalResult{Admitted: true, MaxTTLSeconds: maxTTL, PostCounts: postCounts}, nil
}

// cacheEntry holds a string cache value and its expiry. Cache values live
// in their own map so the counter map stays int64-typed.
type cacheEntry struct {
	value  string
	expiry time.Time
}

func (m *MemoryCounterStore) GetCache(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiry.IsZero() && !m.clock().Before(entry.expiry) {
		delete(m.cache, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryCounterStore) SetCache(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry := time.Time{}
	if ttl > 0 {
		expiry = m.clock().Add(ttl)
	}
	m.cache[key] = cacheEntry{value: value, expiry: expiry}
	return nil
}

func (m *MemoryCounterStore) DeleteKeys(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.counts, key)
		delete(m.expires, key)
		delete(m.cache, key)
	}
	return nil
}

func (m *MemoryCounterStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for key := range m.counts {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	for key := range m.cache {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (m *MemoryCounterStore) Ping(ctx context.Context) error { return nil }
