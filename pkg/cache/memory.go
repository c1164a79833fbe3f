package cache

import (
	"context"
	"sync"
	"time"
)

// memoryItem stores a serialized value with its write timestamp.
type memoryItem struct {
	raw      []byte
	storedAt time.Time
}

// MemoryTier is the in-process tier. It is authoritative during the
// process lifetime; the durable tier only provides cold-start state.
type MemoryTier struct {
	data          map[string]*memoryItem
	mutex         sync.RWMutex
	now           func() time.Time
	maxAge        time.Duration
	cleanupTicker *time.Ticker
	done          chan struct{}
}

// NewMemoryTier creates the in-process tier. The optional janitor only
// bounds growth for keys that are never re-read; it does not change the
// read-time expiry contract.
func NewMemoryTier(opts ...MemoryOption) *MemoryTier {
	cfg := &MemoryConfig{
		MaxAge:          24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mt := &MemoryTier{
		data:   make(map[string]*memoryItem),
		now:    cfg.Now,
		maxAge: cfg.MaxAge,
		done:   make(chan struct{}),
	}
	if mt.now == nil {
		mt.now = time.Now
	}

	if cfg.CleanupInterval > 0 {
		mt.cleanupTicker = time.NewTicker(cfg.CleanupInterval)
		go mt.cleanupStale()
	}
	return mt
}

func (mt *MemoryTier) GetRaw(_ context.Context, key string) ([]byte, time.Time, error) {
	mt.mutex.RLock()
	item, exists := mt.data[key]
	mt.mutex.RUnlock()
	if !exists {
		return nil, time.Time{}, ErrCacheMiss
	}
	return item.raw, item.storedAt, nil
}

func (mt *MemoryTier) SetRaw(_ context.Context, key string, raw []byte, storedAt time.Time) error {
	mt.mutex.Lock()
	mt.data[key] = &memoryItem{raw: raw, storedAt: storedAt}
	mt.mutex.Unlock()
	return nil
}

func (mt *MemoryTier) Delete(_ context.Context, key string) error {
	mt.mutex.Lock()
	delete(mt.data, key)
	mt.mutex.Unlock()
	return nil
}

func (mt *MemoryTier) Clear(_ context.Context) error {
	mt.mutex.Lock()
	mt.data = make(map[string]*memoryItem)
	mt.mutex.Unlock()
	return nil
}

// cleanupStale drops entries older than maxAge. Readers expire entries
// against their own TTLs; this sweep only catches keys nobody reads.
func (mt *MemoryTier) cleanupStale() {
	for {
		select {
		case <-mt.done:
			return
		case <-mt.cleanupTicker.C:
			cutoff := mt.now().Add(-mt.maxAge)
			mt.mutex.Lock()
			for key, item := range mt.data {
				if item.storedAt.Before(cutoff) {
					delete(mt.data, key)
				}
			}
			mt.mutex.Unlock()
		}
	}
}

// Close stops the cleanup ticker.
func (mt *MemoryTier) Close() error {
	if mt.cleanupTicker != nil {
		mt.cleanupTicker.Stop()
		close(mt.done)
	}
	return nil
}
