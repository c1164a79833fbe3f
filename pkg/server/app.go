package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "PolyPulse/internal/domain/repository"
	"PolyPulse/internal/markets"
	"PolyPulse/internal/middleware"
	"PolyPulse/internal/usecase"
	"PolyPulse/pkg/cache"
	"PolyPulse/pkg/config"
	xhttp "PolyPulse/pkg/http"
	pkgkafka "PolyPulse/pkg/kafka"
	applogger "PolyPulse/pkg/logger"
)

// App encapsulates the application lifecycle: the refresh loop, the
// optional price stream, and the HTTP server.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	refresher *usecase.Refresher
	stream    *markets.Stream
	store     cache.Store
	producer  *pkgkafka.Producer
	archiver  domrepo.Archiver
	metrics   domrepo.Metrics

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance. stream, producer, and archiver are
// nil when their feature is disabled in config.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	refresher *usecase.Refresher,
	stream *markets.Stream,
	store cache.Store,
	producer *pkgkafka.Producer,
	archiver domrepo.Archiver,
	metrics domrepo.Metrics,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		refresher: refresher,
		stream:    stream,
		store:     store,
		producer:  producer,
		archiver:  archiver,
		metrics:   metrics,
	}
}

// SetHTTPHandler allows DI to inject the HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts everything and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go a.refresher.Run(ctx)
	a.logger.Info("refresher started",
		applogger.Duration("interval", a.cfg.Refresh.Interval),
		applogger.Int("max_topics", a.cfg.Refresh.MaxTopics))

	if a.stream != nil {
		go a.runStream(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// runStream keeps the price stream alive, feeding ticks into the
// last-price gauge and reconnecting on failure until ctx ends.
func (a *App) runStream(ctx context.Context) {
	if err := a.stream.Connect(ctx); err != nil {
		a.logger.Error("stream connect failed", applogger.Error(err))
		return
	}
	if err := a.stream.Subscribe(ctx); err != nil {
		a.logger.Error("stream subscribe failed", applogger.Error(err))
		return
	}

	throttle := middleware.NewPriceThrottle()
	for {
		updates, errs := a.stream.Read(ctx)
	read:
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					break read
				}
				admit, err := throttle.Admit(u)
				if err != nil {
					a.logger.Debug("dropping invalid tick", applogger.Error(err))
					continue
				}
				if admit {
					a.metrics.RecordLastPrice(u.AssetID, u.Price)
				}
			case err, ok := <-errs:
				if ok && err != nil {
					a.logger.Warn("stream read error", applogger.Error(err))
				}
				break read
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := a.stream.Reconnect(ctx); err != nil {
			a.logger.Error("stream reconnect failed", applogger.Error(err))
			return
		}
	}
}

// shutdown gracefully stops the HTTP server and closes infrastructure
// clients. The refresher stops via context, between cycles.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.logger.Warn("stream close error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.archiver != nil {
		if err := a.archiver.Close(); err != nil {
			a.logger.Warn("archiver close error", applogger.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
