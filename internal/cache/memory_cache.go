package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache CacheRepo в памяти процесса, используется без Redis и в тестах.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time

	requests int64
	hits     int64
	misses   int64
}

// NewMemoryCache создает кеш в памяти с TTL по умолчанию
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		items:      make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++

	e, ok := m.items[key]
	if !ok || m.expired(e) {
		delete(m.items, key)
		m.misses++
		return nil, ErrCacheMiss
	}
	m.hits++

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.items[key] = memoryEntry{value: stored, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return ok && !m.expired(e), nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.items = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) GetMetrics() CacheMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := CacheMetrics{
		TotalRequests: m.requests,
		CacheHits:     m.hits,
		CacheMisses:   m.misses,
		TotalKeys:     int64(len(m.items)),
	}
	if total := m.hits + m.misses; total > 0 {
		metrics.HitRatio = float64(m.hits) / float64(total)
	}
	return metrics
}

// expired проверяет истечение TTL; вызывается под блокировкой
func (m *MemoryCache) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && m.now().After(e.expiresAt)
}
