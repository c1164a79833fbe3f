package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	cacheOps       *prometheus.CounterVec
	fetchesTotal   *prometheus.CounterVec
	rateLimits     *prometheus.CounterVec
	rotationsTotal *prometheus.CounterVec
	spikesTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polypulse_cache_operations_total",
				Help: "Cache reads by outcome (hit or miss)",
			},
			[]string{"outcome"},
		),
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polypulse_fetches_total",
				Help: "Upstream fetch attempts by source and result",
			},
			[]string{"source", "result"},
		),
		rateLimits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polypulse_rate_limits_total",
				Help: "Rate-limit responses observed per source",
			},
			[]string{"source"},
		),
		rotationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polypulse_mirror_rotations_total",
				Help: "Mirror rotations per logical source",
			},
			[]string{"source"},
		),
		spikesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polypulse_spikes_detected_total",
				Help: "Keyword mention spikes detected",
			},
			[]string{"keyword"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "polypulse_last_price",
				Help: "Last observed market price per asset",
			},
			[]string{"asset"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polypulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCacheHit records a cache read that returned a value.
func (r *Recorder) RecordCacheHit() {
	r.cacheOps.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache read that returned absent.
func (r *Recorder) RecordCacheMiss() {
	r.cacheOps.WithLabelValues("miss").Inc()
}

// RecordFetch records one upstream fetch attempt outcome.
func (r *Recorder) RecordFetch(source, result string) {
	r.fetchesTotal.WithLabelValues(source, result).Inc()
}

// RecordRateLimit records a 429-equivalent response from a source.
func (r *Recorder) RecordRateLimit(source string) {
	r.rateLimits.WithLabelValues(source).Inc()
}

// RecordRotation records a mirror rotation.
func (r *Recorder) RecordRotation(source string) {
	r.rotationsTotal.WithLabelValues(source).Inc()
}

// RecordSpike records a detected mention spike.
func (r *Recorder) RecordSpike(keyword string) {
	r.spikesTotal.WithLabelValues(keyword).Inc()
}

// RecordLastPrice records the last observed price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
