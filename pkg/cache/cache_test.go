package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, clock *fakeClock, maxEntries int) (*TTLCache, string) {
	t.Helper()
	dir := t.TempDir()
	ft, err := NewFileTier(dir, WithFileMaxEntries(maxEntries))
	if err != nil {
		t.Fatalf("file tier: %v", err)
	}
	mt := NewMemoryTier(WithMemoryClock(clock.Now), WithMemoryCleanup(0))
	c := NewTTLCache(mt, ft, WithClock(clock.Now))
	t.Cleanup(func() { _ = c.Close() })
	return c, dir
}

func TestSetThenGet(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c, _ := newTestCache(t, clock, 200)
	ctx := context.Background()

	want := map[string]any{"price": 42.5, "active": true}
	if err := c.Set(ctx, "market:abc", want); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got map[string]any
	if err := c.Get(ctx, "market:abc", time.Hour, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["price"] != 42.5 || got["active"] != true {
		t.Fatalf("unexpected value %v", got)
	}
}

func TestExpiryRemovesBothTiers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c, dir := newTestCache(t, clock, 200)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}

	clock.Advance(time.Hour)

	var got string
	if err := c.Get(ctx, "k", time.Hour, &got); err != ErrCacheMiss {
		t.Fatalf("expected miss, got err=%v val=%q", err, got)
	}

	// Expired read must have deleted the file entry too.
	if _, err := os.Stat(filepath.Join(dir, "k.json")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := c.Get(ctx, "k", 24*time.Hour, &got); err != ErrCacheMiss {
		t.Fatalf("entry should be gone under any ttl, got %v", err)
	}
}

func TestReaderSuppliedTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c, _ := newTestCache(t, clock, 200)
	ctx := context.Background()

	if err := c.Set(ctx, "k", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	clock.Advance(10 * time.Minute)

	var got int
	// Fresh for a 1h reader.
	if err := c.Get(ctx, "k", time.Hour, &got); err != nil {
		t.Fatalf("1h reader: %v", err)
	}
	// Already expired for a 5m reader of the same key.
	if err := c.Get(ctx, "k", 5*time.Minute, &got); err != ErrCacheMiss {
		t.Fatalf("5m reader: expected miss, got %v", err)
	}
}

func TestColdStartPromotion(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	dir := t.TempDir()
	ctx := context.Background()

	ft, err := NewFileTier(dir)
	if err != nil {
		t.Fatalf("file tier: %v", err)
	}
	first := NewTTLCache(NewMemoryTier(WithMemoryCleanup(0)), ft, WithClock(clock.Now))
	if err := first.Set(ctx, "k", "warm"); err != nil {
		t.Fatalf("set: %v", err)
	}

	// New process: empty memory, same directory.
	ft2, err := NewFileTier(dir)
	if err != nil {
		t.Fatalf("file tier: %v", err)
	}
	second := NewTTLCache(NewMemoryTier(WithMemoryCleanup(0)), ft2, WithClock(clock.Now))

	var got string
	if err := second.Get(ctx, "k", time.Hour, &got); err != nil {
		t.Fatalf("cold get: %v", err)
	}
	if got != "warm" {
		t.Fatalf("got %q", got)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c, dir := newTestCache(t, clock, 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if err := c.Set(ctx, fmt.Sprintf("key%d", i), i); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
		// mtime granularity: make write order observable.
		path := filepath.Join(dir, fmt.Sprintf("key%d.json", i))
		stamp := time.Unix(1_700_000_000+int64(i)*10, 0)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) > 5 {
		t.Fatalf("expected at most 5 files, got %d", len(files))
	}
	// The three oldest must be gone.
	for i := 0; i < 3; i++ {
		if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("key%d.json", i))); !os.IsNotExist(err) {
			t.Fatalf("key%d should be evicted", i)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "key7.json")); err != nil {
		t.Fatalf("newest entry missing: %v", err)
	}
}

func TestCorruptFileTreatedAsAbsent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c, dir := newTestCache(t, clock, 200)
	ctx := context.Background()

	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got string
	if err := c.Get(ctx, "bad", time.Hour, &got); err != ErrCacheMiss {
		t.Fatalf("expected miss, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt file should be deleted")
	}
}

func TestSanitizeKeyAliasing(t *testing.T) {
	if got := SanitizeKey("nitter_search_Trump AND Maduro"); got != "nitter_search_Trump_AND_Maduro" {
		t.Fatalf("got %q", got)
	}
	// Documented limitation: distinct keys can alias after sanitization.
	a := SanitizeKey("rss_https://a.example/feed")
	b := SanitizeKey("rss_https:/a/example_feed")
	if a != b {
		t.Fatalf("expected alias, got %q vs %q", a, b)
	}
}

func TestDeleteAndClear(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c, dir := newTestCache(t, clock, 200)
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var got int
	if err := c.Get(ctx, "a", time.Hour, &got); err != ErrCacheMiss {
		t.Fatalf("deleted key should miss, got %v", err)
	}

	// Unmanaged files survive Clear.
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(files) != 0 {
		t.Fatalf("managed files should be gone, got %v", files)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("unmanaged file should survive clear: %v", err)
	}
}

func TestSetRejectsUnserializableValue(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c, _ := newTestCache(t, clock, 200)

	if err := c.Set(context.Background(), "fn", func() {}); err == nil {
		t.Fatalf("expected marshal error")
	}
}
