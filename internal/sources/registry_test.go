package sources

import (
	"testing"
	"time"
)

func TestRegistryCooldownExpires(t *testing.T) {
	r := NewSourceRegistry()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.SetLimit("nitter", 5*time.Minute)
	if !r.IsLimited("nitter") {
		t.Fatalf("expected limited")
	}

	now = now.Add(4 * time.Minute)
	if !r.IsLimited("nitter") {
		t.Fatalf("expected still limited at 4m")
	}

	now = now.Add(2 * time.Minute)
	if r.IsLimited("nitter") {
		t.Fatalf("expected expired at 6m")
	}
	// expiry clears the entry, so the map does not grow without bound
	if len(r.until) != 0 {
		t.Fatalf("expected entry cleared, have %d", len(r.until))
	}
}

func TestRegistrySetLimitOverwrites(t *testing.T) {
	r := NewSourceRegistry()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.SetLimit("news", 1*time.Minute)
	r.SetLimit("news", 10*time.Minute)

	now = now.Add(5 * time.Minute)
	if !r.IsLimited("news") {
		t.Fatalf("expected later deadline to win")
	}
}

func TestRegistryUnknownSource(t *testing.T) {
	r := NewSourceRegistry()
	if r.IsLimited("never-seen") {
		t.Fatalf("unknown source must not be limited")
	}
}

func TestMirrorRotationSticky(t *testing.T) {
	m := NewMirrorSet([]string{"a", "b", "c"})
	if got := m.Current(); got != "a" {
		t.Fatalf("got %q", got)
	}
	if got := m.Rotate(); got != "b" {
		t.Fatalf("got %q", got)
	}
	// cursor stays where rotation left it
	if got := m.Current(); got != "b" {
		t.Fatalf("got %q", got)
	}
	m.Rotate()
	if got := m.Rotate(); got != "a" {
		t.Fatalf("expected wraparound, got %q", got)
	}
}

func TestMirrorRotationSingle(t *testing.T) {
	m := NewMirrorSet([]string{"only"})
	for i := 0; i < 3; i++ {
		if got := m.Rotate(); got != "only" {
			t.Fatalf("got %q", got)
		}
	}
}

func TestMirrorRotationEmpty(t *testing.T) {
	m := NewMirrorSet(nil)
	if got := m.Rotate(); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := m.Current(); got != "" {
		t.Fatalf("got %q", got)
	}
}
