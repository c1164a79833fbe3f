package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is a drop-in replacement for the file tier when several
// terminal instances want to share cold-start state. It stores the same
// envelope format and, like the file tier, never applies TTL logic:
// readers expire entries. A generous physical expiration only bounds
// growth for keys nobody reads again.
type RedisTier struct {
	client *redis.Client
	prefix string
	maxAge time.Duration
}

// NewRedisTier creates a Redis-backed durable tier.
func NewRedisTier(opts ...RedisOption) (*RedisTier, error) {
	cfg := &RedisConfig{
		Host:   "localhost",
		Port:   6379,
		DB:     0,
		Prefix: "polypulse",
		MaxAge: 48 * time.Hour,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisTier{
		client: client,
		prefix: cfg.Prefix,
		maxAge: cfg.MaxAge,
	}, nil
}

func (rt *RedisTier) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", rt.prefix, SanitizeKey(key))
}

func (rt *RedisTier) GetRaw(ctx context.Context, key string) ([]byte, time.Time, error) {
	b, err := rt.client.Get(ctx, rt.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, ErrCacheMiss
		}
		return nil, time.Time{}, err
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		_ = rt.client.Del(ctx, rt.wrapKey(key)).Err()
		return nil, time.Time{}, ErrCacheMiss
	}

	return env.Data, env.storedAt(), nil
}

func (rt *RedisTier) SetRaw(ctx context.Context, key string, raw []byte, storedAt time.Time) error {
	b, err := json.Marshal(envelope{Timestamp: toUnixSeconds(storedAt), Data: raw})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return rt.client.Set(ctx, rt.wrapKey(key), b, rt.maxAge).Err()
}

func (rt *RedisTier) Delete(ctx context.Context, key string) error {
	return rt.client.Unlink(ctx, rt.wrapKey(key)).Err()
}

func (rt *RedisTier) Clear(ctx context.Context) error {
	keys, err := rt.client.Keys(ctx, rt.prefix+":*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return rt.client.Unlink(ctx, keys...).Err()
}

// Close closes the Redis connection.
func (rt *RedisTier) Close() error {
	return rt.client.Close()
}
