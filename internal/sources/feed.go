package sources

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"PolyPulse/internal/domain/models"
	"PolyPulse/internal/domain/repository"
	"PolyPulse/pkg/cache"
	xhttp "PolyPulse/pkg/http"
	"PolyPulse/pkg/logger"

	"github.com/mmcdole/gofeed"
)

const (
	sourceTwitter = "Twitter/X"
	sourceNews    = "Google News"

	// registry keys for cooldown tracking
	keyNitter = "nitter"
	keyNews   = "news"

	maxSocialItems = 10
	maxNewsItems   = 5
	maxRSSItems    = 5
	maxKeywords    = 5
	maxAggregated  = 20

	mirrorBackoff = 1 * time.Second
)

// FeedConfig carries the aggregator's tunables.
type FeedConfig struct {
	NewsURL  string
	FeedTTL  time.Duration
	Cooldown time.Duration
}

// FeedAggregator pulls social and news mentions for keywords, with a
// shared TTL cache in front of every upstream call.
type FeedAggregator struct {
	client   *xhttp.Client
	store    cache.Store
	registry *SourceRegistry
	mirrors  *MirrorSet
	cfg      FeedConfig
	metrics  repository.Metrics
	log      *logger.Logger
}

// NewFeedAggregator creates a feed aggregator.
func NewFeedAggregator(
	client *xhttp.Client,
	store cache.Store,
	registry *SourceRegistry,
	mirrors *MirrorSet,
	cfg FeedConfig,
	metrics repository.Metrics,
	log *logger.Logger,
) *FeedAggregator {
	return &FeedAggregator{
		client:   client,
		store:    store,
		registry: registry,
		mirrors:  mirrors,
		cfg:      cfg,
		metrics:  metrics,
		log:      log,
	}
}

// FetchSocial searches the Nitter mirrors for query. A mirror that
// fails is rotated away from; a 429 puts the whole source on cooldown.
// Returns nil (no error) when the source is cooling down.
func (a *FeedAggregator) FetchSocial(ctx context.Context, query string) ([]models.FeedItem, error) {
	cacheKey := "nitter_search_" + query
	var cached []models.FeedItem
	if err := a.store.Get(ctx, cacheKey, a.cfg.FeedTTL, &cached); err == nil {
		a.metrics.RecordCacheHit()
		return cached, nil
	}
	a.metrics.RecordCacheMiss()

	if a.registry.IsLimited(keyNitter) {
		a.log.Debug("social source on cooldown, skipping", logger.String("query", query))
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt < a.mirrors.Len(); attempt++ {
		base := a.mirrors.Current()
		body, err := a.client.Fetch(ctx, base+"/search/rss", map[string][]string{
			"q": {query},
		})
		if err == nil {
			items := a.parseFeed(body, sourceTwitter, maxSocialItems)
			a.metrics.RecordFetch(keyNitter, "ok")
			a.cacheItems(ctx, cacheKey, items)
			return items, nil
		}

		lastErr = err
		if errors.Is(err, xhttp.ErrRateLimited) {
			a.registry.SetLimit(keyNitter, a.cfg.Cooldown)
			a.metrics.RecordRateLimit(keyNitter)
			a.mirrors.Rotate()
			a.metrics.RecordRotation(keyNitter)
			a.log.Warn("social mirror rate limited, cooling down",
				logger.String("mirror", base),
				logger.Duration("cooldown", a.cfg.Cooldown))
			continue
		}

		next := a.mirrors.Rotate()
		a.metrics.RecordRotation(keyNitter)
		a.metrics.RecordFetch(keyNitter, "error")
		a.log.Warn("mirror failed, rotating",
			logger.String("mirror", base),
			logger.String("next", next),
			logger.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(mirrorBackoff):
		}
	}

	return nil, lastErr
}

// FetchNews searches Google News RSS for query.
func (a *FeedAggregator) FetchNews(ctx context.Context, query string) ([]models.FeedItem, error) {
	cacheKey := "google_news_" + query
	var cached []models.FeedItem
	if err := a.store.Get(ctx, cacheKey, a.cfg.FeedTTL, &cached); err == nil {
		a.metrics.RecordCacheHit()
		return cached, nil
	}
	a.metrics.RecordCacheMiss()

	if a.registry.IsLimited(keyNews) {
		return nil, nil
	}

	body, err := a.client.Fetch(ctx, a.cfg.NewsURL, map[string][]string{
		"q":    {query},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	})
	if err != nil {
		if errors.Is(err, xhttp.ErrRateLimited) {
			a.registry.SetLimit(keyNews, a.cfg.Cooldown)
			a.metrics.RecordRateLimit(keyNews)
			return nil, nil
		}
		a.metrics.RecordFetch(keyNews, "error")
		return nil, err
	}

	items := a.parseFeed(body, sourceNews, maxNewsItems)
	a.metrics.RecordFetch(keyNews, "ok")
	a.cacheItems(ctx, cacheKey, items)
	return items, nil
}

// FetchRSS pulls an arbitrary RSS feed, labeling items with sourceName.
// An empty sourceName falls back to the feed's own title.
func (a *FeedAggregator) FetchRSS(ctx context.Context, feedURL, sourceName string) ([]models.FeedItem, error) {
	cacheKey := "rss_" + feedURL
	var cached []models.FeedItem
	if err := a.store.Get(ctx, cacheKey, a.cfg.FeedTTL, &cached); err == nil {
		a.metrics.RecordCacheHit()
		return cached, nil
	}
	a.metrics.RecordCacheMiss()

	if a.registry.IsLimited(cacheKey) {
		return nil, nil
	}

	body, err := a.client.Fetch(ctx, feedURL, nil)
	if err != nil {
		if errors.Is(err, xhttp.ErrRateLimited) {
			a.registry.SetLimit(cacheKey, a.cfg.Cooldown)
			a.metrics.RecordRateLimit("rss")
			return nil, nil
		}
		a.metrics.RecordFetch("rss", "error")
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		a.metrics.RecordFetch("rss", "error")
		return nil, err
	}

	if sourceName == "" {
		sourceName = parsed.Title
	}
	items := itemsFromFeed(parsed, sourceName, maxRSSItems)
	a.metrics.RecordFetch("rss", "ok")
	a.cacheItems(ctx, cacheKey, items)
	return items, nil
}

// Aggregate fans out over at most five keywords, fetching social and
// news mentions concurrently per keyword, then merges: duplicates by
// case-folded title are dropped keeping the first seen, items are
// ordered newest-first, and the top twenty survive. A keyword whose
// fetches fail contributes nothing but never fails the whole pass.
func (a *FeedAggregator) Aggregate(ctx context.Context, keywords []string) []models.FeedItem {
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	perKeyword := make([][]models.FeedItem, len(keywords))
	var wg sync.WaitGroup
	for i, kw := range keywords {
		wg.Add(1)
		go func(i int, kw string) {
			defer wg.Done()
			social, err := a.FetchSocial(ctx, kw)
			if err != nil {
				a.log.Warn("social fetch failed", logger.String("keyword", kw), logger.Error(err))
			}
			news, err := a.FetchNews(ctx, kw)
			if err != nil {
				a.log.Warn("news fetch failed", logger.String("keyword", kw), logger.Error(err))
			}
			perKeyword[i] = append(social, news...)
		}(i, kw)
	}
	wg.Wait()

	merged := make([]models.FeedItem, 0, maxAggregated)
	seen := make(map[string]struct{})
	for _, items := range perKeyword {
		for _, item := range items {
			k := item.DedupKey()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, item)
		}
	}

	// Upstream date strings sort correctly as strings within one feed
	// format; mixed formats interleave imperfectly and that is accepted.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Published > merged[j].Published
	})

	if len(merged) > maxAggregated {
		merged = merged[:maxAggregated]
	}
	return merged
}

// CountMentions tallies, per keyword, how many aggregated items mention
// it in the title. Keywords with no mention count zero.
func CountMentions(items []models.FeedItem, keywords []string) map[string]int {
	counts := make(map[string]int, len(keywords))
	for _, kw := range keywords {
		counts[kw] = 0
		needle := strings.ToLower(kw)
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Title), needle) {
				counts[kw]++
			}
		}
	}
	return counts
}

func (a *FeedAggregator) parseFeed(body []byte, source string, limit int) []models.FeedItem {
	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		a.log.Warn("feed parse failed", logger.String("source", source), logger.Error(err))
		return nil
	}
	return itemsFromFeed(parsed, source, limit)
}

func itemsFromFeed(feed *gofeed.Feed, source string, limit int) []models.FeedItem {
	if feed == nil {
		return nil
	}
	n := len(feed.Items)
	if n > limit {
		n = limit
	}
	items := make([]models.FeedItem, 0, n)
	for _, entry := range feed.Items[:n] {
		items = append(items, models.FeedItem{
			Title:     strings.TrimSpace(entry.Title),
			Link:      entry.Link,
			Published: entry.Published,
			Source:    source,
		})
	}
	return items
}

// cacheItems stores a non-empty result. Empty results are not cached so
// a transient outage does not pin a blank page for the whole TTL.
func (a *FeedAggregator) cacheItems(ctx context.Context, key string, items []models.FeedItem) {
	if len(items) == 0 {
		return
	}
	if err := a.store.Set(ctx, key, items); err != nil {
		a.log.Warn("cache write failed", logger.String("key", key), logger.Error(err))
	}
}
