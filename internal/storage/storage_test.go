package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOperatorStore(t *testing.T) {
	ops := NewOperatorStore(openTestStore(t))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ops.now = func() time.Time { return fixed }

	op, err := ops.Add("Notch")
	require.NoError(t, err)
	assert.Equal(t, "Notch", op.Name)
	assert.Equal(t, OfflineUUID("Notch"), op.UUID)
	assert.Equal(t, fixed, op.AddedAt)

	ok, err := ops.IsOperator("notch")
	require.NoError(t, err)
	assert.True(t, ok)

	// Повторное добавление не меняет запись
	ops.now = func() time.Time { return fixed.Add(time.Hour) }
	again, err := ops.Add("NOTCH")
	require.NoError(t, err)
	assert.Equal(t, op, again)

	_, err = ops.Add("alex")
	require.NoError(t, err)

	list, err := ops.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alex", list[0].Name)
	assert.Equal(t, "Notch", list[1].Name)

	require.NoError(t, ops.Remove("Notch"))
	ok, err = ops.IsOperator("Notch")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, ops.Remove("Notch"), ErrNotFound)

	_, err = ops.Add("  ")
	assert.Error(t, err)
}

func TestOperatorStorePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = NewOperatorStore(s).Add("jeb_")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	ok, err := NewOperatorStore(s).IsOperator("jeb_")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClosedStore(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = NewOperatorStore(s).IsOperator("x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOfflineUUIDDeterministic(t *testing.T) {
	assert.Equal(t, OfflineUUID("Steve"), OfflineUUID("Steve"))
	assert.NotEqual(t, OfflineUUID("Steve"), OfflineUUID("Alex"))
}

// testPositionRepo общий набор проверок для всех реализаций PositionRepo
func testPositionRepo(t *testing.T, repo PositionRepo) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		want := vec.Vec3{X: 10, Y: 70, Z: -5}
		require.NoError(t, repo.Save(ctx, "Steve", want))

		got, found, err := repo.Load(ctx, "steve")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, want, got)
	})

	t.Run("Load unknown player", func(t *testing.T) {
		got, found, err := repo.Load(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, vec.Vec3{}, got)
	})

	t.Run("Reject invalid", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, "", vec.Vec3{}))
		assert.Error(t, repo.Save(ctx, "steve", vec.Vec3{Y: 400}))
		assert.Error(t, repo.Save(ctx, "steve", vec.Vec3{Y: -65}))
	})

	t.Run("BatchSave and Delete", func(t *testing.T) {
		require.NoError(t, repo.BatchSave(ctx, map[string]vec.Vec3{
			"a": {X: 1, Y: 1, Z: 1},
			"b": {X: 2, Y: -64, Z: 2},
		}))
		got, found, err := repo.Load(ctx, "b")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, -64, got.Y)

		require.NoError(t, repo.Delete(ctx, "a"))
		require.NoError(t, repo.Delete(ctx, "a"))
		_, found, err = repo.Load(ctx, "a")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMemoryPositionRepo(t *testing.T) {
	repo := NewMemoryPositionRepo()
	testPositionRepo(t, repo)
	assert.Equal(t, 2, repo.Count(), "steve и b")

	err := repo.BatchSave(context.Background(), map[string]vec.Vec3{
		"ok":  {Y: 0},
		"bad": {Y: 1000},
	})
	assert.Error(t, err)
	_, found, _ := repo.Load(context.Background(), "ok")
	assert.False(t, found)
	assert.Equal(t, 2, repo.Count())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.Save(ctx, "x", vec.Vec3{}), context.Canceled)
}

func TestBadgerPositionRepo(t *testing.T) {
	testPositionRepo(t, NewBadgerPositionRepo(openTestStore(t)))
}

func TestRedisPositionRepo(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://127.0.0.1:6379/0"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	repo, err := NewRedisPositionRepo(ctx, url, "blockverse-test:pos:", time.Minute)
	if err != nil {
		t.Skipf("Redis недоступен: %v", err)
	}
	defer repo.Close()

	testPositionRepo(t, repo)
}

func TestValidPlayerName(t *testing.T) {
	assert.True(t, ValidPlayerName("Steve_01"))
	assert.False(t, ValidPlayerName("ab"))
	assert.False(t, ValidPlayerName("this_name_is_too_long"))
	assert.False(t, ValidPlayerName("bad name"))
}
