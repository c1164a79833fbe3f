package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PolyPulse/internal/domain/models"
	"PolyPulse/internal/sources"
	"PolyPulse/internal/spike"
	"PolyPulse/internal/usecase"
	"PolyPulse/pkg/cache"
	xhttp "PolyPulse/pkg/http"
	"PolyPulse/pkg/logger"

	"github.com/labstack/echo/v4"
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

func newStore(t *testing.T) cache.Store {
	t.Helper()
	fileTier, err := cache.NewFileTier(t.TempDir())
	if err != nil {
		t.Fatalf("file tier: %v", err)
	}
	return cache.NewTTLCache(cache.NewMemoryTier(cache.WithMemoryCleanup(0)), fileTier)
}

func newTestHandler(t *testing.T) (*DashboardHandler, *echo.Echo) {
	t.Helper()
	news := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>n</title>`+
			`<item><title>Bitcoin rallies</title><link>https://example.com/1</link><pubDate>Mon, 01 Jan 2025 12:00:00 GMT</pubDate></item>`+
			`</channel></rss>`)
	}))
	t.Cleanup(news.Close)

	agg := sources.NewFeedAggregator(
		xhttp.NewClient(xhttp.WithTimeout(5*time.Second)),
		newStore(t),
		sources.NewSourceRegistry(),
		sources.NewMirrorSet(nil),
		sources.FeedConfig{NewsURL: news.URL, FeedTTL: 30 * time.Minute, Cooldown: 5 * time.Minute},
		nopMetrics{},
		logger.Nop(),
	)
	detector := spike.NewDetector(newStore(t), nopMetrics{}, logger.Nop())
	refresher := usecase.NewRefresher(nil, agg, detector, nil, nopMetrics{}, logger.Nop(), usecase.RefresherConfig{
		Interval: time.Minute,
		Topics: []models.Topic{
			{Key: "crypto", Title: "Crypto", Keywords: []string{"bitcoin"}},
		},
	})
	refresher.RunCycle(context.Background())

	h := NewDashboardHandler(logger.Nop(), refresher)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFeedByTopic(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doGet(e, "/api/feed?topic=crypto")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var resp struct {
		Data []models.FeedItem `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Title != "Bitcoin rallies" {
		t.Fatalf("items: %+v", resp.Data)
	}
}

func TestFeedUnknownTopic(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doGet(e, "/api/feed?topic=nope")
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 payload", resp.Status)
	}
}

func TestFeedRejectsBadLimit(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doGet(e, "/api/feed?topic=crypto&limit=1000")
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 payload", resp.Status)
	}
}

func TestSpikesOnlyFilter(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doGet(e, "/api/spikes?only_spikes=true")
	var resp struct {
		Data []models.SpikeResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// single cycle cannot spike, filter must come back empty
	if len(resp.Data) != 0 {
		t.Fatalf("spikes: %+v", resp.Data)
	}
}

func TestHealthReady(t *testing.T) {
	_, e := newTestHandler(t)

	rec := doGet(e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
