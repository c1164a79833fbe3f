package cache

import (
	"context"
	"encoding/json"
	"time"

	"PolyPulse/pkg/logger"
)

// TTLCache implements Store over two tiers: the in-process memory tier
// and a durable tier (file or Redis). Memory is authoritative during
// the process lifetime; durable entries are advisory cold-start state
// promoted into memory on a fresh read.
type TTLCache struct {
	mem     Tier
	durable Tier
	now     func() time.Time
	log     *logger.Logger
}

// NewTTLCache creates a layered cache over the given tiers.
func NewTTLCache(mem, durable Tier, opts ...LayeredOption) *TTLCache {
	cfg := &LayeredConfig{
		Logger: logger.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	tc := &TTLCache{
		mem:     mem,
		durable: durable,
		now:     cfg.Now,
		log:     cfg.Logger,
	}
	if tc.now == nil {
		tc.now = time.Now
	}
	return tc
}

// Get returns the value for key if it was stored less than ttl ago.
// An expired memory entry is evicted and the durable tier consulted;
// an expired or unreadable durable entry is deleted. Both outcomes
// surface as ErrCacheMiss, never as an error the caller must handle.
func (tc *TTLCache) Get(ctx context.Context, key string, ttl time.Duration, dest interface{}) error {
	if raw, storedAt, err := tc.mem.GetRaw(ctx, key); err == nil {
		if tc.fresh(storedAt, ttl) {
			return tc.decode(ctx, key, raw, dest)
		}
		_ = tc.mem.Delete(ctx, key)
	}

	raw, storedAt, err := tc.durable.GetRaw(ctx, key)
	if err != nil {
		return ErrCacheMiss
	}
	if !tc.fresh(storedAt, ttl) {
		_ = tc.durable.Delete(ctx, key)
		return ErrCacheMiss
	}

	// Promote with the original timestamp so later reads under shorter
	// TTLs still expire correctly.
	_ = tc.mem.SetRaw(ctx, key, raw, storedAt)
	return tc.decode(ctx, key, raw, dest)
}

// Set writes both tiers with the same timestamp. Concurrent writers to
// the same key race by timestamp; last write wins.
func (tc *TTLCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := Marshal(value)
	if err != nil {
		return err
	}

	storedAt := tc.now()
	_ = tc.mem.SetRaw(ctx, key, raw, storedAt)
	if err := tc.durable.SetRaw(ctx, key, raw, storedAt); err != nil {
		// Memory stays authoritative; a failed durable write only costs
		// cold-start state.
		tc.log.Warn("durable cache write failed",
			logger.String("key", key), logger.Error(err))
	}
	return nil
}

func (tc *TTLCache) Delete(ctx context.Context, key string) error {
	_ = tc.mem.Delete(ctx, key)
	return tc.durable.Delete(ctx, key)
}

func (tc *TTLCache) Clear(ctx context.Context) error {
	_ = tc.mem.Clear(ctx)
	return tc.durable.Clear(ctx)
}

// Close closes both tiers.
func (tc *TTLCache) Close() error {
	_ = tc.mem.Close()
	return tc.durable.Close()
}

func (tc *TTLCache) fresh(storedAt time.Time, ttl time.Duration) bool {
	return tc.now().Sub(storedAt) < ttl
}

func (tc *TTLCache) decode(ctx context.Context, key string, raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		tc.log.Warn("dropping undecodable cache entry",
			logger.String("key", key), logger.Error(err))
		_ = tc.mem.Delete(ctx, key)
		_ = tc.durable.Delete(ctx, key)
		return ErrCacheMiss
	}
	return nil
}
