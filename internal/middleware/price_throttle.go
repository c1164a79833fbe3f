package middleware

import (
	"fmt"
	"sync"
	"time"

	"PolyPulse/internal/domain/models"
)

// PriceThrottle sits between the market stream and downstream gauges.
// It rejects malformed ticks and caps the per-asset update rate so a
// bursty book does not flood the metrics pipeline.
type PriceThrottle struct {
	mu       sync.Mutex
	minGap   time.Duration
	lastSeen map[string]time.Time
	now      func() time.Time
}

type ThrottleOption func(*PriceThrottle)

// WithMaxPerSecond caps accepted updates per asset per second.
func WithMaxPerSecond(n int) ThrottleOption {
	return func(p *PriceThrottle) {
		if n > 0 {
			p.minGap = time.Second / time.Duration(n)
		}
	}
}

// NewPriceThrottle creates a throttle, default 20 updates per asset
// per second.
func NewPriceThrottle(opts ...ThrottleOption) *PriceThrottle {
	p := &PriceThrottle{
		minGap:   time.Second / 20,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Admit validates a tick and decides whether it passes the rate cap.
// Invalid ticks return an error; throttled ticks return false, nil.
func (p *PriceThrottle) Admit(u models.PriceUpdate) (bool, error) {
	if err := validateUpdate(u); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	last := p.lastSeen[u.AssetID]
	if !last.IsZero() && now.Sub(last) < p.minGap {
		return false, nil
	}
	p.lastSeen[u.AssetID] = now
	return true, nil
}

func validateUpdate(u models.PriceUpdate) error {
	if u.AssetID == "" {
		return fmt.Errorf("asset id empty")
	}
	if u.Price < 0 || u.Price > 1 {
		return fmt.Errorf("price out of range: %v", u.Price)
	}
	return nil
}
