package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Store is the read contract of the cache. The TTL is supplied by the
// reader, not stored with the entry, so the same key can be read under
// different TTLs by different callers.
type Store interface {
	Get(ctx context.Context, key string, ttl time.Duration, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Tier is one storage level. Tiers store opaque serialized values with
// their write timestamp and never apply TTL logic themselves; expiry is
// decided by the layered cache at read time.
type Tier interface {
	GetRaw(ctx context.Context, key string) (raw []byte, storedAt time.Time, err error)
	SetRaw(ctx context.Context, key string, raw []byte, storedAt time.Time) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// envelope is the durable-tier wire format: one JSON object per entry
// holding the write timestamp (unix seconds) and the serialized value.
type envelope struct {
	Timestamp float64         `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func (e envelope) storedAt() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Marshal serializes a value for storage. Values must belong to the
// JSON-serializable set (numbers, strings, booleans, sequences,
// string-keyed maps and structs of those); anything else fails here
// rather than at read time.
func Marshal(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}
