package spike

import (
	"context"
	"testing"
	"time"

	"PolyPulse/internal/domain/models"
	"PolyPulse/internal/domain/repository"
	"PolyPulse/pkg/cache"
	"PolyPulse/pkg/logger"
)

type nopMetrics struct{ spikes int }

func (m *nopMetrics) RecordCacheHit() {}
func (m *nopMetrics) RecordCacheMiss() {}
func (m *nopMetrics) RecordFetch(string, string) {}
func (m *nopMetrics) RecordRateLimit(string) {}
func (m *nopMetrics) RecordRotation(string) {}
func (m *nopMetrics) RecordSpike(string)              { m.spikes++ }
func (m *nopMetrics) RecordLastPrice(string, float64) {}
func (m *nopMetrics) RecordLatency(string, float64) {}

type captureNotifier struct {
	got []models.SpikeResult
}

func (c *captureNotifier) NotifySpike(_ context.Context, r models.SpikeResult) {
	c.got = append(c.got, r)
}

func newTestDetector(t *testing.T, notifiers ...repository.Notifier) (*Detector, *time.Time, *nopMetrics) {
	t.Helper()
	fileTier, err := cache.NewFileTier(t.TempDir())
	if err != nil {
		t.Fatalf("file tier: %v", err)
	}
	store := cache.NewTTLCache(cache.NewMemoryTier(cache.WithMemoryCleanup(0)), fileTier)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &nopMetrics{}
	d := NewDetector(store, m, logger.Nop(), notifiers...)
	d.now = func() time.Time { return now }
	return d, &now, m
}

func TestSpikeDetected(t *testing.T) {
	d, now, m := newTestDetector(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d.Analyze(ctx, "bitcoin", 10)
		*now = now.Add(time.Hour)
	}

	r := d.Analyze(ctx, "bitcoin", 20)
	if r.HistoricalAvg != 10 {
		t.Fatalf("avg = %v, want 10", r.HistoricalAvg)
	}
	if r.SpikePercent != 100 {
		t.Fatalf("spike_percent = %v, want 100", r.SpikePercent)
	}
	if !r.IsSpike {
		t.Fatalf("expected spike")
	}
	if r.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %v, want medium", r.Confidence)
	}
	if m.spikes != 1 {
		t.Fatalf("spike metric = %d, want 1", m.spikes)
	}
}

func TestThresholdIsExclusive(t *testing.T) {
	d, now, _ := newTestDetector(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d.Analyze(ctx, "eth", 10)
		*now = now.Add(time.Hour)
	}

	// exactly +50% is not a spike
	r := d.Analyze(ctx, "eth", 15)
	if r.SpikePercent != 50 {
		t.Fatalf("spike_percent = %v, want 50", r.SpikePercent)
	}
	if r.IsSpike {
		t.Fatalf("50%% must not count as spike")
	}
}

func TestFirstSampleIsLowConfidence(t *testing.T) {
	d, _, _ := newTestDetector(t)

	r := d.Analyze(context.Background(), "doge", 5)
	if r.Confidence != models.ConfidenceLow || r.IsSpike || r.SpikePercent != 0 {
		t.Fatalf("first sample: got %+v", r)
	}
	// with no history the current count stands in for the average
	if r.HistoricalAvg != 5 {
		t.Fatalf("avg = %v, want 5", r.HistoricalAvg)
	}
}

func TestSinglePriorSampleYieldsVerdict(t *testing.T) {
	d, now, _ := newTestDetector(t)
	ctx := context.Background()

	d.Analyze(ctx, "doge", 10)
	*now = now.Add(time.Hour)

	r := d.Analyze(ctx, "doge", 20)
	if r.HistoricalAvg != 10 {
		t.Fatalf("avg = %v, want 10", r.HistoricalAvg)
	}
	if r.SpikePercent != 100 || !r.IsSpike {
		t.Fatalf("one prior sample must produce a verdict, got %+v", r)
	}
	if r.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %v, want medium", r.Confidence)
	}
}

func TestZeroAverageConventions(t *testing.T) {
	d, now, _ := newTestDetector(t)
	ctx := context.Background()

	d.Analyze(ctx, "quiet", 0)
	*now = now.Add(time.Hour)
	d.Analyze(ctx, "quiet", 0)
	*now = now.Add(time.Hour)

	r := d.Analyze(ctx, "quiet", 5)
	if r.SpikePercent != 100 || !r.IsSpike {
		t.Fatalf("first mentions after silence: got %+v", r)
	}

	d2, now2, _ := newTestDetector(t)
	d2.Analyze(ctx, "dead", 0)
	*now2 = now2.Add(time.Hour)
	d2.Analyze(ctx, "dead", 0)
	*now2 = now2.Add(time.Hour)

	r = d2.Analyze(ctx, "dead", 0)
	if r.SpikePercent != 0 || r.IsSpike {
		t.Fatalf("all-zero history with zero count: got %+v", r)
	}
}

func TestOldSamplesPruned(t *testing.T) {
	d, now, _ := newTestDetector(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d.Analyze(ctx, "fed", 10)
		*now = now.Add(time.Hour)
	}

	*now = now.Add(25 * time.Hour)
	r := d.Analyze(ctx, "fed", 100)
	if r.Confidence != models.ConfidenceLow {
		t.Fatalf("stale history must be pruned, got %+v", r)
	}
}

func TestPruneCutoffIsExclusive(t *testing.T) {
	d, now, _ := newTestDetector(t)
	ctx := context.Background()

	d.Analyze(ctx, "oil", 10)

	// a sample exactly 24h old falls out of the window
	*now = now.Add(24 * time.Hour)
	r := d.Analyze(ctx, "oil", 100)
	if r.Confidence != models.ConfidenceLow {
		t.Fatalf("boundary sample must be pruned, got %+v", r)
	}
}

func TestHighConfidenceAtTenPriorSamples(t *testing.T) {
	d, now, _ := newTestDetector(t)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		d.Analyze(ctx, "gold", 10)
		*now = now.Add(time.Minute)
	}

	// 9 prior samples: ten total including this one, still medium
	r := d.Analyze(ctx, "gold", 10)
	if r.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %v, want medium", r.Confidence)
	}

	// 10 prior samples: eleven total crosses the high threshold
	*now = now.Add(time.Minute)
	r = d.Analyze(ctx, "gold", 10)
	if r.Confidence != models.ConfidenceHigh {
		t.Fatalf("confidence = %v, want high", r.Confidence)
	}
}

func TestHistoryPersistedEvenOnEarlyReturn(t *testing.T) {
	d, _, _ := newTestDetector(t)
	ctx := context.Background()

	d.Analyze(ctx, "new", 7)

	var history []models.Sample
	if err := d.store.Get(ctx, historyKey("new"), historyTTL, &history); err != nil {
		t.Fatalf("history not persisted: %v", err)
	}
	if len(history) != 1 || history[0].Count != 7 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestNotifierFiresOnSpikeOnly(t *testing.T) {
	sink := &captureNotifier{}
	d, now, _ := newTestDetector(t, sink)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d.Analyze(ctx, "btc", 10)
		*now = now.Add(time.Hour)
	}
	if len(sink.got) != 0 {
		t.Fatalf("notified without spike")
	}

	d.Analyze(ctx, "btc", 30)
	if len(sink.got) != 1 || sink.got[0].Keyword != "btc" {
		t.Fatalf("expected one notification, got %+v", sink.got)
	}
}

func TestAnalyzeAllFollowsKeywordOrder(t *testing.T) {
	d, _, _ := newTestDetector(t)
	results := d.AnalyzeAll(context.Background(),
		[]string{"z", "a", "m", "a"},
		map[string]int{"z": 1, "a": 2},
	)
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Keyword != "z" || results[1].Keyword != "a" || results[2].Keyword != "m" {
		t.Fatalf("results out of order: %+v", results)
	}
	// a keyword with no count entry is analyzed as zero mentions
	if results[2].CurrentCount != 0 {
		t.Fatalf("missing keyword count = %d, want 0", results[2].CurrentCount)
	}
}
