package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

// Metrics owns a private registry so several instances can coexist in tests.
// Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	snapshotOps       *prometheus.CounterVec
	snapshotLatency   *prometheus.HistogramVec
	integrityFailures *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec

	dbStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge

	scrapeInterval time.Duration
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight API requests.",
		}),
		snapshotOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_operations_total",
			Help: "Snapshot service operations by operation/result.",
		}, []string{"operation", "result"}),
		snapshotLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapshot_operation_duration_seconds",
			Help:    "Snapshot service operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		integrityFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_integrity_failures_total",
			Help: "Snapshots whose stored hash did not match the recomputed hash.",
		}, []string{"source"}),
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_events_published_total",
			Help: "Snapshot events handed to the event bus by type/result.",
		}, []string{"type", "result"}),
		dbStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Name: "redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
		scrapeInterval: 15 * time.Second,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveSnapshotOp records one service call. result is "ok" or an error code.
func (m *Metrics) ObserveSnapshotOp(op, result string, dur time.Duration) {
	if m == nil {
		return
	}
	if result == "" {
		result = "ok"
	}
	m.snapshotOps.WithLabelValues(op, result).Inc()
	m.snapshotLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) IncIntegrityFailure(source string) {
	if m == nil {
		return
	}
	m.integrityFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) IncEventPublished(eventType string, ok bool) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.dbStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

// StartRedisCollector pings through the caller's client; it does not close it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil && ctx.Err() == nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// RouteLabel maps an empty gin FullPath to a fixed label to bound cardinality.
func RouteLabel(fullPath string) string {
	fullPath = strings.TrimSpace(fullPath)
	if fullPath == "" {
		return "unmatched"
	}
	return fullPath
}
