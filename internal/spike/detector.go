package spike

import (
	"context"
	"time"

	"PolyPulse/internal/domain/models"
	"PolyPulse/internal/domain/repository"
	"PolyPulse/pkg/cache"
	"PolyPulse/pkg/logger"
)

const (
	// historyWindow bounds the rolling sample window; historyTTL is the
	// physical lifetime of the persisted history and must exceed it.
	historyWindow = 24 * time.Hour
	historyTTL    = 48 * time.Hour

	// sample counts below include the observation just appended
	spikeThreshold        = 50.0
	minSamples            = 2
	highConfidenceSamples = 10
)

// Detector flags unusual mention volume for a keyword by comparing the
// current count against the rolling average of prior observations.
type Detector struct {
	store     cache.Store
	metrics   repository.Metrics
	notifiers []repository.Notifier
	log       *logger.Logger
	now       func() time.Time
}

// NewDetector creates a spike detector. Notifiers fire on every
// detected spike, in order.
func NewDetector(store cache.Store, metrics repository.Metrics, log *logger.Logger, notifiers ...repository.Notifier) *Detector {
	return &Detector{
		store:     store,
		metrics:   metrics,
		notifiers: notifiers,
		log:       log,
		now:       time.Now,
	}
}

// Analyze records currentCount for keyword and returns the spike
// verdict. The new sample joins the history and samples older than the
// window are dropped before anything is computed, so the history on
// disk always reflects this observation even when the verdict is
// "not enough data".
func (d *Detector) Analyze(ctx context.Context, keyword string, currentCount int) models.SpikeResult {
	now := d.now()
	history := d.loadHistory(ctx, keyword)

	history = append(history, models.Sample{Count: currentCount, Timestamp: now.Unix()})
	history = prune(history, now.Add(-historyWindow).Unix())
	d.saveHistory(ctx, keyword, history)

	result := models.SpikeResult{
		Keyword:      keyword,
		CurrentCount: currentCount,
	}

	if len(history) < minSamples {
		result.HistoricalAvg = float64(currentCount)
		result.Confidence = models.ConfidenceLow
		return result
	}

	// everything before the sample just appended
	previous := history[:len(history)-1]
	var sum int
	for _, s := range previous {
		sum += s.Count
	}
	avg := float64(sum) / float64(len(previous))
	result.HistoricalAvg = avg

	if avg == 0 {
		if currentCount > 0 {
			result.SpikePercent = 100
		}
	} else {
		result.SpikePercent = (float64(currentCount) - avg) / avg * 100
	}

	result.IsSpike = result.SpikePercent > spikeThreshold
	if len(history) > highConfidenceSamples {
		result.Confidence = models.ConfidenceHigh
	} else {
		result.Confidence = models.ConfidenceMedium
	}

	if result.IsSpike {
		d.metrics.RecordSpike(keyword)
		for _, n := range d.notifiers {
			n.NotifySpike(ctx, result)
		}
	}
	return result
}

// AnalyzeAll runs Analyze for every keyword in order, reading its
// current count from counts. A keyword absent from counts is analyzed
// with a count of zero, so a keyword that stops appearing still decays
// its history. Duplicate keywords are analyzed once.
func (d *Detector) AnalyzeAll(ctx context.Context, keywords []string, counts map[string]int) []models.SpikeResult {
	seen := make(map[string]struct{}, len(keywords))
	results := make([]models.SpikeResult, 0, len(keywords))
	for _, kw := range keywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		results = append(results, d.Analyze(ctx, kw, counts[kw]))
	}
	return results
}

func (d *Detector) loadHistory(ctx context.Context, keyword string) []models.Sample {
	var history []models.Sample
	if err := d.store.Get(ctx, historyKey(keyword), historyTTL, &history); err != nil {
		return nil
	}
	return history
}

func (d *Detector) saveHistory(ctx context.Context, keyword string, history []models.Sample) {
	if err := d.store.Set(ctx, historyKey(keyword), history); err != nil {
		d.log.Warn("history write failed",
			logger.String("keyword", keyword), logger.Error(err))
	}
}

func prune(history []models.Sample, cutoff int64) []models.Sample {
	kept := history[:0]
	for _, s := range history {
		if s.Timestamp > cutoff {
			kept = append(kept, s)
		}
	}
	return kept
}

func historyKey(keyword string) string {
	return "mention_history_" + keyword
}
