package usecase

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PolyPulse/internal/domain/models"
	"PolyPulse/internal/sources"
	"PolyPulse/internal/spike"
	"PolyPulse/pkg/cache"
	xhttp "PolyPulse/pkg/http"
	"PolyPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordCacheHit() {}
func (nopMetrics) RecordCacheMiss() {}
func (nopMetrics) RecordFetch(string, string) {}
func (nopMetrics) RecordRateLimit(string) {}
func (nopMetrics) RecordRotation(string) {}
func (nopMetrics) RecordSpike(string) {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64) {}

type captureArchiver struct {
	got []models.MentionSample
}

func (c *captureArchiver) ArchiveSamples(_ context.Context, samples []models.MentionSample) error {
	c.got = append(c.got, samples...)
	return nil
}

func (c *captureArchiver) Close() error { return nil }

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	fileTier, err := cache.NewFileTier(t.TempDir())
	if err != nil {
		t.Fatalf("file tier: %v", err)
	}
	return cache.NewTTLCache(cache.NewMemoryTier(cache.WithMemoryCleanup(0)), fileTier)
}

func newTestRefresher(t *testing.T, newsURL string, cfg RefresherConfig, arch *captureArchiver) *Refresher {
	t.Helper()
	store := newTestStore(t)
	agg := sources.NewFeedAggregator(
		xhttp.NewClient(xhttp.WithTimeout(5*time.Second)),
		store,
		sources.NewSourceRegistry(),
		sources.NewMirrorSet(nil),
		sources.FeedConfig{NewsURL: newsURL, FeedTTL: 30 * time.Minute, Cooldown: 5 * time.Minute},
		nopMetrics{},
		logger.Nop(),
	)
	detector := spike.NewDetector(newTestStore(t), nopMetrics{}, logger.Nop())

	r := NewRefresher(nil, agg, detector, nil, nopMetrics{}, logger.Nop(), cfg)
	if arch != nil {
		r.archiver = arch
	}
	return r
}

func newsServer(t *testing.T, titles ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>news</title>`)
		for i, title := range titles {
			fmt.Fprintf(w, `<item><title>%s</title><link>https://example.com/%d</link><pubDate>Mon, 01 Jan 2025 12:00:00 GMT</pubDate></item>`, title, i)
		}
		fmt.Fprint(w, `</channel></rss>`)
	}))
}

func TestRunCycleBuildsSnapshot(t *testing.T) {
	srv := newsServer(t, "Bitcoin surges past 100k", "Markets quiet today")
	defer srv.Close()

	cfg := RefresherConfig{
		Interval:  time.Minute,
		MaxTopics: 10,
		Topics: []models.Topic{
			{Key: "crypto", Title: "Crypto", Keywords: []string{"bitcoin"}},
		},
	}
	r := newTestRefresher(t, srv.URL, cfg, nil)
	r.RunCycle(context.Background())

	snap := r.Snapshot()
	if len(snap.Topics) != 1 || snap.Topics[0].Key != "crypto" {
		t.Fatalf("topics: %+v", snap.Topics)
	}
	if len(snap.Feeds["crypto"]) == 0 {
		t.Fatalf("expected feed items for crypto")
	}
	if len(snap.Spikes) != 1 || snap.Spikes[0].Keyword != "bitcoin" {
		t.Fatalf("spikes: %+v", snap.Spikes)
	}
	if snap.Spikes[0].CurrentCount != 1 {
		t.Fatalf("bitcoin count = %d, want 1", snap.Spikes[0].CurrentCount)
	}
	if snap.UpdatedAt.IsZero() {
		t.Fatalf("snapshot timestamp missing")
	}
}

func TestMaxTopicsClamped(t *testing.T) {
	srv := newsServer(t, "nothing relevant")
	defer srv.Close()

	topics := make([]models.Topic, 6)
	for i := range topics {
		topics[i] = models.Topic{Key: fmt.Sprintf("t%d", i), Keywords: []string{fmt.Sprintf("kw%d", i)}}
	}
	r := newTestRefresher(t, srv.URL, RefresherConfig{Interval: time.Minute, MaxTopics: 3, Topics: topics}, nil)
	r.RunCycle(context.Background())

	if got := len(r.Snapshot().Topics); got != 3 {
		t.Fatalf("topics = %d, want 3", got)
	}
}

func TestArchiverReceivesSamples(t *testing.T) {
	srv := newsServer(t, "Ethereum upgrade ships")
	defer srv.Close()

	arch := &captureArchiver{}
	cfg := RefresherConfig{
		Interval: time.Minute,
		Topics: []models.Topic{
			{Key: "eth", Keywords: []string{"ethereum"}},
		},
	}
	r := newTestRefresher(t, srv.URL, cfg, arch)
	r.RunCycle(context.Background())

	if len(arch.got) != 1 || arch.got[0].Keyword != "ethereum" {
		t.Fatalf("archived: %+v", arch.got)
	}
	if arch.got[0].Count != 1 {
		t.Fatalf("count = %d, want 1", arch.got[0].Count)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := newsServer(t)
	defer srv.Close()

	r := newTestRefresher(t, srv.URL, RefresherConfig{Interval: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("refresher did not stop")
	}
}
