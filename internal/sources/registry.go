package sources

import (
	"sync"
	"time"
)

// SourceRegistry tracks per-source cooldowns. A limited source stays
// limited until its deadline passes; expiry is checked lazily on read.
type SourceRegistry struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewSourceRegistry creates an empty registry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

// SetLimit places source on cooldown for d from now. A later call
// overwrites any earlier deadline.
func (r *SourceRegistry) SetLimit(source string, d time.Duration) {
	r.mu.Lock()
	r.until[source] = r.now().Add(d)
	r.mu.Unlock()
}

// IsLimited reports whether source is still cooling down. Expired
// entries are cleared on the way out.
func (r *SourceRegistry) IsLimited(source string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline, ok := r.until[source]
	if !ok {
		return false
	}
	if r.now().After(deadline) {
		delete(r.until, source)
		return false
	}
	return true
}

// MirrorSet holds the ordered mirror list for a source and a sticky
// cursor into it. Rotation survives across fetches so a dead mirror is
// not retried first on every call.
type MirrorSet struct {
	mu      sync.Mutex
	mirrors []string
	idx     int
}

// NewMirrorSet creates a mirror set over urls. The slice is not copied;
// callers must not mutate it afterwards.
func NewMirrorSet(urls []string) *MirrorSet {
	return &MirrorSet{mirrors: urls}
}

// Len returns the number of mirrors.
func (m *MirrorSet) Len() int {
	return len(m.mirrors)
}

// Current returns the mirror the cursor points at, or "" when empty.
func (m *MirrorSet) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mirrors) == 0 {
		return ""
	}
	return m.mirrors[m.idx]
}

// Rotate advances the cursor to the next mirror and returns it.
// With a single mirror the cursor never moves.
func (m *MirrorSet) Rotate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mirrors) == 0 {
		return ""
	}
	if len(m.mirrors) > 1 {
		m.idx = (m.idx + 1) % len(m.mirrors)
	}
	return m.mirrors[m.idx]
}
