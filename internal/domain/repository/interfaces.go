package repository

import (
	"context"

	"PolyPulse/internal/domain/models"
)

// Metrics records operational counters. The Prometheus recorder in
// pkg/metrics is the production implementation; tests use a no-op.
type Metrics interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordFetch(source, result string)
	RecordRateLimit(source string)
	RecordRotation(source string)
	RecordSpike(keyword string)
	RecordLastPrice(asset string, price float64)
	RecordLatency(operation string, seconds float64)
}

// Notifier delivers spike events to interested parties.
type Notifier interface {
	NotifySpike(ctx context.Context, result models.SpikeResult)
}

// Archiver persists mention samples for offline analysis. Failures are
// logged, never surfaced to the analysis path.
type Archiver interface {
	ArchiveSamples(ctx context.Context, samples []models.MentionSample) error
	Close() error
}
