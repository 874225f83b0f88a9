package rdx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the client with the small set of helpers the service uses.
// Built once in main, passed by reference.
type Redis struct {
	Conn *redis.Client
}

func New(ctx context.Context, addr string) (*Redis, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	conn := redis.NewClient(&redis.Options{Addr: addr})
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{Conn: conn}, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Conn.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	return r.Conn.Get(ctx, key).Result()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	return r.Conn.Del(ctx, keys...).Err()
}

func (r *Redis) Hset(ctx context.Context, hash, field, value string) error {
	return r.Conn.HSet(ctx, hash, field, value).Err()
}

func (r *Redis) Hdel(ctx context.Context, hash, field string) error {
	return r.Conn.HDel(ctx, hash, field).Err()
}

// AcquireLock takes a distributed lock via SetNX. Returns false when some
// other request already holds it.
func (r *Redis) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.Conn.SetNX(ctx, key, "1", ttl).Result()
}

func (r *Redis) ReleaseLock(ctx context.Context, key string) error {
	return r.Conn.Del(ctx, key).Err()
}
