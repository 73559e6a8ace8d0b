package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hoteldesk/internal/config"

	"github.com/redis/go-redis/v9"
)

var errNilClient = errors.New("redis client is nil")

// raiseAndIncr lifts the counter to ARGV[1] when it lags behind, then increments it.
var raiseAndIncr = redis.NewScript(`
local floor = tonumber(ARGV[1])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current < floor then
  redis.call('SET', KEYS[1], floor)
end
return redis.call('INCR', KEYS[1])
`)

// rewindAndIncr resets the counter to ARGV[1], then increments it.
var rewindAndIncr = redis.NewScript(`
redis.call('SET', KEYS[1], tonumber(ARGV[1]))
return redis.call('INCR', KEYS[1])
`)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "rate_limit:"}
}

// CheckRateLimit counts a hit for key in a fixed window of the given length.
func (r *RedisStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if r.client == nil {
		return false, 0, errNilClient
	}
	k := r.prefix + key
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.PExpire(ctx, k, window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}

// NextSequence increments the counter at key, first raising it to floor if it is lower.
func (r *RedisStore) NextSequence(ctx context.Context, key string, floor int64) (int64, error) {
	if r.client == nil {
		return 0, errNilClient
	}
	v, err := raiseAndIncr.Run(ctx, r.client, []string{key}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", key, err)
	}
	return v, nil
}

// RewindSequence sets the counter at key to value and returns value+1.
// Numbers handed out above value and never stored are issued again.
func (r *RedisStore) RewindSequence(ctx context.Context, key string, value int64) (int64, error) {
	if r.client == nil {
		return 0, errNilClient
	}
	v, err := rewindAndIncr.Run(ctx, r.client, []string{key}, value).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to rewind sequence %s: %w", key, err)
	}
	return v, nil
}

// Ping checks the connection to Redis.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return errNilClient
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
