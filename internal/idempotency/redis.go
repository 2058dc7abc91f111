package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldtech/internal/config"
)

const keyPrefix = "idempotency:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the configured Redis and verifies it answers.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: cfg.KeyTTL}, nil
}

func (r *Redis) Begin(ctx context.Context, key string) (State, error) {
	ok, err := r.client.SetNX(ctx, keyPrefix+key, valuePending, r.ttl).Result()
	if err != nil {
		return Fresh, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return Fresh, nil
	}

	value, err := r.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return r.Begin(ctx, key)
	}
	if err != nil {
		return Fresh, fmt.Errorf("read idempotency key: %w", err)
	}
	if value == valueDone {
		return Done, nil
	}
	return Fresh, ErrInFlight
}

func (r *Redis) Finish(ctx context.Context, key string) error {
	return r.client.Set(ctx, keyPrefix+key, valueDone, r.ttl).Err()
}

func (r *Redis) Abort(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
