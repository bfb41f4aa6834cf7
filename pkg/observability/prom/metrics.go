// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements every observability hook interface.
type Metrics struct {
	selectTotal       *prometheus.CounterVec
	selectDuration    prometheus.Histogram
	selectDiagnostics prometheus.Counter
	conflictsTotal    prometheus.Counter
	conflictDuration  prometheus.Histogram

	packOpsTotal    *prometheus.CounterVec
	packOpsDuration *prometheus.HistogramVec
	gcPacksTotal    *prometheus.CounterVec
	gcDuration      prometheus.Histogram

	cacheTotal    *prometheus.CounterVec
	cacheSetBytes *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		selectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packforge_select_total",
			Help: "Framework pack selections by outcome.",
		}, []string{"outcome"}),
		selectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "packforge_select_duration_seconds",
			Help:    "Time taken to select framework packs.",
			Buckets: prometheus.DefBuckets,
		}),
		selectDiagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "packforge_select_diagnostics_total",
			Help: "Diagnostics reported by framework pack selection.",
		}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "packforge_conflicts_total",
			Help: "Conflicting candidate files removed or demoted.",
		}),
		conflictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "packforge_conflict_resolution_duration_seconds",
			Help:    "Time taken to resolve package file conflicts.",
			Buckets: prometheus.DefBuckets,
		}),
		packOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packforge_pack_operations_total",
			Help: "Workload pack operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		packOpsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "packforge_pack_operation_duration_seconds",
			Help:    "Time taken per workload pack operation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"op"}),
		gcPacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packforge_gc_packs_total",
			Help: "Packs seen by garbage collection by result.",
		}, []string{"result"}),
		gcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "packforge_gc_duration_seconds",
			Help:    "Time taken per garbage collection run.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packforge_cache_requests_total",
			Help: "Cache lookups by key type and result.",
		}, []string{"key_type", "result"}),
		cacheSetBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packforge_cache_set_size_total",
			Help: "Sum of sizes written to the cache by key type.",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packforge_http_requests_total",
			Help: "Feed HTTP responses by host and status.",
		}, []string{"host", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "packforge_http_request_duration_seconds",
			Help:    "Feed HTTP request latency by host.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "packforge_http_errors_total",
			Help: "Feed HTTP requests that failed without a response.",
		}, []string{"host"}),
	}
	reg.MustRegister(
		m.selectTotal, m.selectDuration, m.selectDiagnostics,
		m.conflictsTotal, m.conflictDuration,
		m.packOpsTotal, m.packOpsDuration, m.gcPacksTotal, m.gcDuration,
		m.cacheTotal, m.cacheSetBytes,
		m.httpRequests, m.httpDuration, m.httpErrors,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnSelect(_ context.Context, _ string, _, diagnostics int, d time.Duration, err error) {
	m.selectTotal.WithLabelValues(outcome(err)).Inc()
	m.selectDuration.Observe(d.Seconds())
	m.selectDiagnostics.Add(float64(diagnostics))
}

func (m *Metrics) OnConflicts(_ context.Context, _, conflicts int, d time.Duration) {
	m.conflictsTotal.Add(float64(conflicts))
	m.conflictDuration.Observe(d.Seconds())
}

func (m *Metrics) OnPackOperation(_ context.Context, op, _ string, d time.Duration, err error) {
	m.packOpsTotal.WithLabelValues(op, outcome(err)).Inc()
	m.packOpsDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) OnGarbageCollect(_ context.Context, collected, failed, skipped int, d time.Duration) {
	m.gcPacksTotal.WithLabelValues("collected").Add(float64(collected))
	m.gcPacksTotal.WithLabelValues("failed").Add(float64(failed))
	m.gcPacksTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.gcDuration.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheSetBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(host, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.httpErrors.WithLabelValues(host).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
