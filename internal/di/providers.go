package di

import (
	"context"
	"fmt"
	"time"

	"PolyPulse/internal/archive"
	"PolyPulse/internal/domain/models"
	"PolyPulse/internal/domain/repository"
	"PolyPulse/internal/handler/api"
	"PolyPulse/internal/markets"
	"PolyPulse/internal/sources"
	"PolyPulse/internal/spike"
	"PolyPulse/internal/usecase"
	"PolyPulse/pkg/cache"
	pkgch "PolyPulse/pkg/clickhouse"
	"PolyPulse/pkg/config"
	xhttp "PolyPulse/pkg/http"
	pkgkafka "PolyPulse/pkg/kafka"
	applogger "PolyPulse/pkg/logger"
	"PolyPulse/pkg/metrics"
	"PolyPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCacheStore builds the layered TTL cache. The durable tier is
// Redis when enabled, the local file tier otherwise.
func ProvideCacheStore(cfg *config.Config, log *applogger.Logger) (cache.Store, error) {
	mem := cache.NewMemoryTier()

	var durable cache.Tier
	if cfg.Cache.Redis.Enabled {
		tier, err := cache.NewRedisTier(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis tier: %w", err)
		}
		durable = tier
	} else {
		tier, err := cache.NewFileTier(cfg.Cache.Dir,
			cache.WithFileMaxEntries(cfg.Cache.MaxEntries),
			cache.WithFileLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("file tier: %w", err)
		}
		durable = tier
	}

	return cache.NewTTLCache(mem, durable, cache.WithLogger(log)), nil
}

// ProvideFeedClient creates the HTTP client used for feed fetches,
// paced per upstream host.
func ProvideFeedClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Feeds.RequestTimeout),
		xhttp.WithMaxRPS(cfg.Feeds.MaxRPS),
	)
}

// ProvideFeedAggregator creates the feed aggregator.
func ProvideFeedAggregator(
	cfg *config.Config,
	client *xhttp.Client,
	store cache.Store,
	m repository.Metrics,
	log *applogger.Logger,
) *sources.FeedAggregator {
	return sources.NewFeedAggregator(
		client,
		store,
		sources.NewSourceRegistry(),
		sources.NewMirrorSet(cfg.Feeds.NitterURLs),
		sources.FeedConfig{
			NewsURL:  cfg.Feeds.NewsURL,
			FeedTTL:  cfg.Feeds.FeedTTL,
			Cooldown: cfg.Feeds.Cooldown,
		},
		m,
		log,
	)
}

// ProvideMarketClient creates the Polymarket API client with its own
// timeout, independent of the feed client's.
func ProvideMarketClient(cfg *config.Config, store cache.Store, m repository.Metrics, log *applogger.Logger) *markets.Client {
	httpClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Polymarket.RequestTimeout))
	return markets.NewClient(httpClient, store, cfg.Polymarket.GammaURL, cfg.Polymarket.DataURL, m, log)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSpikeDetector creates the spike detector with its notifier
// chain: always the log notifier, plus Kafka when configured.
func ProvideSpikeDetector(
	cfg *config.Config,
	store cache.Store,
	m repository.Metrics,
	producer *pkgkafka.Producer,
	log *applogger.Logger,
) *spike.Detector {
	notifiers := []repository.Notifier{spike.NewLogNotifier(log)}
	if producer != nil {
		notifiers = append(notifiers, spike.NewKafkaNotifier(producer, cfg.Kafka.Topic, log))
	}
	return spike.NewDetector(store, m, log, notifiers...)
}

// ProvideArchiver creates the ClickHouse mention archive, or nil when
// disabled.
func ProvideArchiver(cfg *config.Config, log *applogger.Logger) (repository.Archiver, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	arch, err := archive.NewMentionArchive(ctx, client, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return arch, nil
}

// ProvideRefresher creates the refresh loop.
func ProvideRefresher(
	cfg *config.Config,
	mkts *markets.Client,
	feeds *sources.FeedAggregator,
	detector *spike.Detector,
	archiver repository.Archiver,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Refresher {
	staticTopics := make([]models.Topic, 0, len(cfg.Topics))
	for _, t := range cfg.Topics {
		staticTopics = append(staticTopics, models.Topic{
			Key:      t.Key,
			Title:    t.Title,
			Keywords: t.Keywords,
		})
	}

	return usecase.NewRefresher(mkts, feeds, detector, archiver, m, log, usecase.RefresherConfig{
		Wallet:    cfg.Polymarket.WalletAddress,
		Interval:  cfg.Refresh.Interval,
		MaxTopics: cfg.Refresh.MaxTopics,
		Topics:    staticTopics,
	})
}

// ProvideStream creates the CLOB price stream, or nil when disabled.
// Asset subscriptions are resolved at connect time from config topics.
func ProvideStream(cfg *config.Config, log *applogger.Logger) *markets.Stream {
	if !cfg.Stream.Enabled {
		return nil
	}
	assetIDs := make([]string, 0, len(cfg.Topics))
	for _, t := range cfg.Topics {
		assetIDs = append(assetIDs, t.Key)
	}
	return markets.NewStream(
		cfg.Stream.WebSocketURL,
		assetIDs,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
		log,
	)
}

// ProvideDashboardHandler creates the HTTP API handler.
func ProvideDashboardHandler(log *applogger.Logger, refresher *usecase.Refresher) *api.DashboardHandler {
	return api.NewDashboardHandler(log, refresher)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	refresher *usecase.Refresher,
	stream *markets.Stream,
	store cache.Store,
	producer *pkgkafka.Producer,
	archiver repository.Archiver,
	m repository.Metrics,
	handler *api.DashboardHandler,
) *server.App {
	app := server.New(cfg, log, refresher, stream, store, producer, archiver, m)
	app.SetHTTPHandler(handler)
	return app
}
