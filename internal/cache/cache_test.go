package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
)

func TestChunkKey(t *testing.T) {
	assert.Equal(t, "chunk:-3:7", ChunkKey(vec.Vec2{X: -3, Z: 7}))
}

func TestMemoryCacheBasic(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, err := c.Get(ctx, "chunk:0:0")
	assert.True(t, IsCacheMiss(err))

	payload := []byte{1, 2, 3}
	require.NoError(t, c.Set(ctx, "chunk:0:0", payload, 0))
	payload[0] = 9 // кеш хранит копию

	got, err := c.Get(ctx, "chunk:0:0")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	ok, err := c.Exists(ctx, "chunk:0:0")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "chunk:0:0"))
	_, err = c.Get(ctx, "chunk:0:0")
	assert.ErrorIs(t, err, ErrCacheMiss)

	m := c.GetMetrics()
	assert.Equal(t, int64(3), m.TotalRequests)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(2), m.CacheMisses)

	assert.ErrorIs(t, c.Set(ctx, "", nil, 0), ErrInvalidKey)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Second))
	now = now.Add(11 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, int64(0), c.GetMetrics().TotalKeys)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://127.0.0.1:6379/0"
	}
	c, err := NewRedisCache(url, "blockverse-test:", time.Minute)
	if err != nil {
		t.Skipf("Redis недоступен: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := ChunkKey(vec.Vec2{X: 1, Z: 2})
	require.NoError(t, c.Delete(ctx, key))

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, key, []byte("payload"), time.Second*30))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	exists, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, key))
	assert.Equal(t, int64(1), c.GetMetrics().CacheHits)
}

func TestCollectorExportsMetrics(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	require.NoError(t, c.Set(ctx, "chunk:1:1", []byte{1}, 0))
	_, _ = c.Get(ctx, "chunk:1:1")
	_, _ = c.Get(ctx, "chunk:2:2")

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(c, "memory")))

	expected := `
# HELP blockverse_chunk_cache_hits_total Попадания в кеш снимков чанков.
# TYPE blockverse_chunk_cache_hits_total counter
blockverse_chunk_cache_hits_total{backend="memory"} 1
# HELP blockverse_chunk_cache_misses_total Промахи кеша снимков чанков.
# TYPE blockverse_chunk_cache_misses_total counter
blockverse_chunk_cache_misses_total{backend="memory"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"blockverse_chunk_cache_hits_total", "blockverse_chunk_cache_misses_total"))
}
