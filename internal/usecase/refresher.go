package usecase

import (
	"context"
	"sync"
	"time"

	"PolyPulse/internal/domain/models"
	domrepo "PolyPulse/internal/domain/repository"
	"PolyPulse/internal/markets"
	"PolyPulse/internal/sources"
	"PolyPulse/internal/spike"
	"PolyPulse/pkg/logger"
)

// Snapshot is one consistent view of everything the dashboard serves.
// Replaced wholesale at the end of each refresh cycle.
type Snapshot struct {
	Positions []models.Market              `json:"positions"`
	Topics    []models.Topic               `json:"topics"`
	Feeds     map[string][]models.FeedItem `json:"feeds"`
	Spikes    []models.SpikeResult         `json:"spikes"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// RefresherConfig carries the refresh loop tunables.
type RefresherConfig struct {
	Wallet    string
	Interval  time.Duration
	MaxTopics int
	Topics    []models.Topic
}

// Refresher periodically pulls positions, regenerates topics, fans out
// feed aggregation, and runs spike analysis over the mention counts.
type Refresher struct {
	markets  *markets.Client
	feeds    *sources.FeedAggregator
	detector *spike.Detector
	archiver domrepo.Archiver
	metrics  domrepo.Metrics
	log      *logger.Logger
	cfg      RefresherConfig
	now      func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

// NewRefresher creates a refresher. archiver may be nil when archiving
// is disabled.
func NewRefresher(
	mkts *markets.Client,
	feeds *sources.FeedAggregator,
	detector *spike.Detector,
	archiver domrepo.Archiver,
	metrics domrepo.Metrics,
	log *logger.Logger,
	cfg RefresherConfig,
) *Refresher {
	return &Refresher{
		markets:  mkts,
		feeds:    feeds,
		detector: detector,
		archiver: archiver,
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes one cycle immediately, then one per interval until the
// context ends. Shutdown happens between cycles, never mid-cycle.
func (r *Refresher) Run(ctx context.Context) {
	r.RunCycle(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresher stopped")
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full refresh pass.
func (r *Refresher) RunCycle(ctx context.Context) {
	start := r.now()

	positions, topics := r.loadTopics(ctx)

	feeds := make(map[string][]models.FeedItem, len(topics))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, topic := range topics {
		wg.Add(1)
		go func(topic models.Topic) {
			defer wg.Done()
			items := r.feeds.Aggregate(ctx, topic.Keywords)
			mu.Lock()
			feeds[topic.Key] = items
			mu.Unlock()
		}(topic)
	}
	wg.Wait()

	keywords, counts := r.countMentions(topics, feeds)
	spikes := r.detector.AnalyzeAll(ctx, keywords, counts)
	r.archive(ctx, spikes)

	r.mu.Lock()
	r.snap = Snapshot{
		Positions: positions,
		Topics:    topics,
		Feeds:     feeds,
		Spikes:    spikes,
		UpdatedAt: r.now(),
	}
	r.mu.Unlock()

	r.metrics.RecordLatency("refresh_cycle", r.now().Sub(start).Seconds())
	r.log.Info("refresh cycle complete",
		logger.Int("topics", len(topics)),
		logger.Int("keywords", len(counts)),
		logger.Duration("took", r.now().Sub(start)))
}

// Snapshot returns the latest completed view.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// loadTopics combines position-derived topics with the configured
// static ones, newest positions first, clamped to MaxTopics. A failed
// position fetch degrades to static topics only.
func (r *Refresher) loadTopics(ctx context.Context) ([]models.Market, []models.Topic) {
	var positionMarkets []models.Market
	var topics []models.Topic

	if r.cfg.Wallet != "" {
		raw, err := r.markets.WalletPositions(ctx, r.cfg.Wallet)
		if err != nil {
			r.log.Warn("position fetch failed", logger.Error(err))
		} else {
			for _, p := range raw {
				positionMarkets = append(positionMarkets, markets.ParseMarket(p))
			}
			topics = markets.GenerateTopics(raw, nil)
		}
	}

	topics = append(topics, r.cfg.Topics...)
	if r.cfg.MaxTopics > 0 && len(topics) > r.cfg.MaxTopics {
		topics = topics[:r.cfg.MaxTopics]
	}
	return positionMarkets, topics
}

// countMentions tallies keyword mentions within each topic's own feed,
// summing when topics share a keyword. The returned slice preserves
// topic order so spike analysis runs deterministically per cycle.
func (r *Refresher) countMentions(topics []models.Topic, feeds map[string][]models.FeedItem) ([]string, map[string]int) {
	var keywords []string
	counts := make(map[string]int)
	for _, topic := range topics {
		kc := sources.CountMentions(feeds[topic.Key], topic.Keywords)
		for _, kw := range topic.Keywords {
			if _, ok := counts[kw]; !ok {
				keywords = append(keywords, kw)
			}
			counts[kw] += kc[kw]
		}
	}
	return keywords, counts
}

func (r *Refresher) archive(ctx context.Context, spikes []models.SpikeResult) {
	if r.archiver == nil || len(spikes) == 0 {
		return
	}
	now := r.now()
	samples := make([]models.MentionSample, 0, len(spikes))
	for _, s := range spikes {
		samples = append(samples, models.MentionSample{
			Keyword:      s.Keyword,
			Count:        s.CurrentCount,
			SpikePercent: s.SpikePercent,
			IsSpike:      s.IsSpike,
			At:           now,
		})
	}
	if err := r.archiver.ArchiveSamples(ctx, samples); err != nil {
		r.log.Warn("archive failed", logger.Error(err))
	}
}
