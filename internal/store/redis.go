package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on top of a redis client.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects to redis and pings it once.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisFromClient(client, opts.TTL), nil
}

// NewRedisFromClient wraps an existing client without pinging it.
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, wrap("get", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, wrap("get", key, fmt.Errorf("failed to unmarshal value: %w", err))
	}
	return true, nil
}

func (r *Redis) SetIfAbsent(ctx context.Context, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, wrap("setnx", key, fmt.Errorf("failed to marshal value: %w", err))
	}
	ok, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return false, wrap("setnx", key, err)
	}
	return ok, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration, onlyIfNoExpiry bool) (bool, error) {
	if ttl <= 0 {
		ttl = r.ttl
	}
	var cmd *redis.BoolCmd
	if onlyIfNoExpiry {
		cmd = r.client.ExpireNX(ctx, key, ttl)
	} else {
		cmd = r.client.Expire(ctx, key, ttl)
	}
	ok, err := cmd.Result()
	if err != nil {
		return false, wrap("expire", key, err)
	}
	return ok, nil
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	return n, wrap("incr", key, err)
}

func (r *Redis) Decr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Decr(ctx, key).Result()
	return n, wrap("decr", key, err)
}

func (r *Redis) Ping(ctx context.Context) error {
	return wrap("ping", "", r.client.Ping(ctx).Err())
}

func (r *Redis) Close() error {
	return r.client.Close()
}
