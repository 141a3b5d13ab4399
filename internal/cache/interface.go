package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/blockverse/internal/vec"
)

// CacheRepo определяет интерфейс кеша закодированных чанков.
//
// Использование:
//
//	repo := NewMemoryCache(5 * time.Minute)
//	err := repo.Set(ctx, ChunkKey(coords), payload, 0)
//	data, err := repo.Get(ctx, ChunkKey(coords))
type CacheRepo interface {
	// Get получает значение по ключу. Возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с TTL. TTL = 0 означает TTL по умолчанию.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ. Удаление отсутствующего ключа не является ошибкой.
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа.
	Exists(ctx context.Context, key string) (bool, error)

	// Close освобождает ресурсы кеша.
	Close() error

	// GetMetrics возвращает снимок метрик кеша.
	GetMetrics() CacheMetrics
}

// CacheMetrics содержит метрики производительности кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	TotalKeys     int64   `json:"total_keys"`
}

// Ошибки кеша
var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrInvalidKey = errors.New("invalid key")
)

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// ChunkKey возвращает ключ закодированного чанка: chunk:<x>:<z>
func ChunkKey(coords vec.Vec2) string {
	return fmt.Sprintf("chunk:%d:%d", coords.X, coords.Z)
}
