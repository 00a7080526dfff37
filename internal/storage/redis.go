package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// sessionTTL bounds how long an idle session survives. Every save
// refreshes it.
const sessionTTL = 24 * time.Hour

// RedisStorage implements Storage on Redis.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis-backed storage instance.
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

// Client exposes the underlying connection for collaborators that
// share it (the event broadcaster).
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func (r *RedisStorage) SaveWorld(ctx context.Context, id uuid.UUID, w *state.World) error {
	data, err := json.Marshal(w)
	if err != nil {
		r.logger.Error("Failed to marshal world", "session_id", id, "error", err)
		return fmt.Errorf("failed to marshal world: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(id), string(data), sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save world", "session_id", id, "error", err)
		return fmt.Errorf("failed to save world: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadWorld(ctx context.Context, id uuid.UUID) (*state.World, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to load world", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load world: %w", err)
	}
	var w state.World
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		r.logger.Error("Failed to unmarshal world", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal world: %w", err)
	}
	return &w, nil
}

func (r *RedisStorage) DeleteWorld(ctx context.Context, id uuid.UUID) error {
	deleted, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		r.logger.Error("Failed to delete world", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete world: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}
