package observability

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// View tracking metrics
	ViewsRecordedTotal   *prometheus.CounterVec
	ViewsDuplicateTotal  *prometheus.CounterVec
	ViewsRejectedTotal   *prometheus.CounterVec
	PassiveTrackFailures prometheus.Counter
	PassiveTrackDropped  prometheus.Counter

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewtrack_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viewtrack_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ViewsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewtrack_views_recorded_total",
				Help: "Total number of view events persisted",
			},
			[]string{"source"}, // explicit | passive
		),
		ViewsDuplicateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewtrack_views_duplicate_total",
				Help: "Total number of views suppressed by the dedup window",
			},
			[]string{"source"},
		),
		ViewsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewtrack_views_rejected_total",
				Help: "Total number of view attempts rejected by gating or validation",
			},
			[]string{"reason"}, // not_found | gated | validation | no_identity
		),
		PassiveTrackFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "viewtrack_passive_track_failures_total",
				Help: "Total number of passive tracking persists that failed",
			},
		),
		PassiveTrackDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "viewtrack_passive_track_dropped_total",
				Help: "Total number of passive tracking tasks dropped due to backpressure",
			},
		),

		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewtrack_store_operations_total",
				Help: "Total number of event store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viewtrack_store_operation_duration_seconds",
				Help:    "Event store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewtrack_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"}, // dedup | report | property
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewtrack_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "viewtrack_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "viewtrack_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ViewsRecordedTotal,
		m.ViewsDuplicateTotal,
		m.ViewsRejectedTotal,
		m.PassiveTrackFailures,
		m.PassiveTrackDropped,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveStoreOperation records metrics for an event store operation
func (m *Metrics) ObserveStoreOperation(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetDBStats updates the connection pool gauges from a pool snapshot
func (m *Metrics) SetDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// StartDBStatsCollector samples the pool's connection stats on the given
// interval until the context is cancelled.
func (m *Metrics) StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SetDBStats(db.Stats())
			}
		}
	}()
}
