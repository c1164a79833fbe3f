package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"PolyPulse/internal/domain/repository"
	"PolyPulse/pkg/cache"
	xhttp "PolyPulse/pkg/http"
	"PolyPulse/pkg/logger"
)

const (
	marketTTL = 2 * time.Minute

	// Gamma rejects default Go user agents; identify like a browser add-on.
	userAgent = "Mozilla/5.0 (compatible; PolyPulse/1.0)"
)

// Client reads markets from the Gamma API and wallet positions from the
// Data API. Both are unauthenticated read-only endpoints; every call
// goes through the shared TTL cache.
type Client struct {
	http     *xhttp.Client
	store    cache.Store
	gammaURL string
	dataURL  string
	metrics  repository.Metrics
	log      *logger.Logger
}

// NewClient creates a Polymarket API client.
func NewClient(httpClient *xhttp.Client, store cache.Store, gammaURL, dataURL string, metrics repository.Metrics, log *logger.Logger) *Client {
	return &Client{
		http:     httpClient,
		store:    store,
		gammaURL: gammaURL,
		dataURL:  dataURL,
		metrics:  metrics,
		log:      log,
	}
}

// Markets fetches up to limit markets, active-only when active is set.
func (c *Client) Markets(ctx context.Context, limit int, active bool) ([]map[string]interface{}, error) {
	cacheKey := fmt.Sprintf("markets_gamma_%d_%t", limit, active)
	var cached []map[string]interface{}
	if err := c.store.Get(ctx, cacheKey, marketTTL, &cached); err == nil {
		c.metrics.RecordCacheHit()
		return cached, nil
	}
	c.metrics.RecordCacheMiss()

	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.gammaURL + "/markets",
		Headers: map[string]string{"User-Agent": userAgent},
		QueryParams: map[string][]string{
			"limit":    {strconv.Itoa(limit)},
			"active":   {strconv.FormatBool(active)},
			"closed":   {"false"},
			"archived": {"false"},
		},
	}, &body)
	if err != nil {
		c.metrics.RecordFetch("gamma", "error")
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	markets := unwrapList(body, "data", "markets")
	c.metrics.RecordFetch("gamma", "ok")
	c.log.Debug("fetched markets", logger.Int("count", len(markets)))

	if len(markets) > 0 {
		if err := c.store.Set(ctx, cacheKey, markets); err != nil {
			c.log.Warn("cache write failed", logger.String("key", cacheKey), logger.Error(err))
		}
	}
	return markets, nil
}

// WalletPositions fetches open positions for a wallet, largest cash
// P&L first.
func (c *Client) WalletPositions(ctx context.Context, wallet string) ([]map[string]interface{}, error) {
	cacheKey := "wallet_positions_" + wallet
	var cached []map[string]interface{}
	if err := c.store.Get(ctx, cacheKey, marketTTL, &cached); err == nil {
		c.metrics.RecordCacheHit()
		return cached, nil
	}
	c.metrics.RecordCacheMiss()

	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.dataURL + "/positions",
		Headers: map[string]string{"User-Agent": userAgent},
		QueryParams: map[string][]string{
			"user":          {wallet},
			"limit":         {"100"},
			"sortBy":        {"CASHPNL"},
			"sortDirection": {"DESC"},
		},
	}, &body)
	if err != nil {
		c.metrics.RecordFetch("data_api", "error")
		return nil, fmt.Errorf("fetch positions: %w", err)
	}

	positions := unwrapList(body, "data", "positions")
	c.metrics.RecordFetch("data_api", "ok")

	if len(positions) > 0 {
		if err := c.store.Set(ctx, cacheKey, positions); err != nil {
			c.log.Warn("cache write failed", logger.String("key", cacheKey), logger.Error(err))
		}
	}
	return positions, nil
}

// MarketBySlug scans the market list for a slug, condition id, or
// question id match. Gamma has no direct slug endpoint.
func (c *Client) MarketBySlug(ctx context.Context, slug string) (map[string]interface{}, error) {
	cacheKey := "market_" + slug
	var cached map[string]interface{}
	if err := c.store.Get(ctx, cacheKey, marketTTL, &cached); err == nil {
		c.metrics.RecordCacheHit()
		return cached, nil
	}
	c.metrics.RecordCacheMiss()

	all, err := c.Markets(ctx, 1000, true)
	if err != nil {
		return nil, err
	}
	for _, m := range all {
		if slug == str(m, "slug") || slug == str(m, "conditionId") || slug == str(m, "questionID") {
			if err := c.store.Set(ctx, cacheKey, m); err != nil {
				c.log.Warn("cache write failed", logger.String("key", cacheKey), logger.Error(err))
			}
			return m, nil
		}
	}
	return nil, fmt.Errorf("market not found: %s", slug)
}

// unwrapList tolerates the upstream's response shapes: a bare array, an
// object wrapping the array under a known key, or a single object.
func unwrapList(body []byte, keys ...string) []map[string]interface{} {
	var asList []map[string]interface{}
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList
	}

	var asObject map[string]interface{}
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil
	}
	for _, key := range keys {
		if inner, ok := asObject[key].([]interface{}); ok {
			out := make([]map[string]interface{}, 0, len(inner))
			for _, item := range inner {
				if m, ok := item.(map[string]interface{}); ok {
					out = append(out, m)
				}
			}
			return out
		}
	}
	return []map[string]interface{}{asObject}
}
