package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisPositionRepo хранит позиции игроков в Redis, общий для нескольких серверов
type RedisPositionRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisPositionRepo подключается по URL вида redis://host:6379/0.
// ttl == 0 означает хранение без истечения.
func NewRedisPositionRepo(ctx context.Context, url, keyPrefix string, ttl time.Duration) (*RedisPositionRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("некорректный Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if keyPrefix == "" {
		keyPrefix = "blockverse:pos:"
	}
	return &RedisPositionRepo{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (r *RedisPositionRepo) key(name string) string {
	return r.keyPrefix + positionKey(name)
}

func (r *RedisPositionRepo) Save(ctx context.Context, name string, pos vec.Vec3) error {
	return r.BatchSave(ctx, map[string]vec.Vec3{name: pos})
}

func (r *RedisPositionRepo) Load(ctx context.Context, name string) (vec.Vec3, bool, error) {
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return vec.Vec3{}, false, nil
	}
	if err != nil {
		return vec.Vec3{}, false, fmt.Errorf("failed to get position: %w", err)
	}

	var sp storedPosition
	if err := json.Unmarshal(data, &sp); err != nil {
		return vec.Vec3{}, false, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return sp.Position, true, nil
}

func (r *RedisPositionRepo) Delete(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// BatchSave отправляет все записи одним пайплайном
func (r *RedisPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Vec3) error {
	if len(positions) == 0 {
		return nil
	}

	now := time.Now().UTC()
	pipe := r.client.Pipeline()
	for name, pos := range positions {
		if err := validatePosition(name, pos); err != nil {
			return err
		}
		data, err := json.Marshal(storedPosition{Position: pos, UpdatedAt: now})
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(name), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

func (r *RedisPositionRepo) Close() error {
	return r.client.Close()
}
