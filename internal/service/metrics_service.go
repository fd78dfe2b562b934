package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded on defense_runs_total.
const (
	RunOutcomeScheduled = "scheduled"
	RunOutcomeEmpty     = "nothing_to_schedule"
	RunOutcomePartial   = "partial"
	RunOutcomeFailed    = "failed"
)

// MetricsService encapsulates Prometheus instrumentation. All methods are no-ops on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	assignedTotal   *prometheus.CounterVec
	unassignedTotal *prometheus.CounterVec
	rejectedTotal   *prometheus.CounterVec
	persistFailures prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "defense_runs_total",
		Help: "Scheduling runs by strategy and outcome",
	}, []string{"strategy", "outcome"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "defense_run_duration_seconds",
		Help:    "Wall time of a scheduling run, load to persist",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	assignedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "defense_assignments_total",
		Help: "Defenses assigned by scheduling runs",
	}, []string{"strategy"})

	unassignedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "defense_unassigned_total",
		Help: "Students left without a feasible slot",
	}, []string{"strategy"})

	rejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "defense_rejected_records_total",
		Help: "Malformed availability records skipped",
	}, []string{"source"})

	persistFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "defense_persist_failures_total",
		Help: "Per-student assignment transactions rolled back",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration,
		runsTotal, runDuration, assignedTotal, unassignedTotal, rejectedTotal, persistFailures,
		goroutines,
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		assignedTotal:   assignedTotal,
		unassignedTotal: unassignedTotal,
		rejectedTotal:   rejectedTotal,
		persistFailures: persistFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics disabled\n"))
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RunStats summarises one scheduling run for instrumentation.
type RunStats struct {
	Strategy        string
	Outcome         string
	Assigned        int
	Unassigned      int
	PersistFailures int
	Rejected        map[string]int
	Duration        time.Duration
}

// ObserveRun records the counters of a finished scheduling run.
func (m *MetricsService) ObserveRun(stats RunStats) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(stats.Strategy, stats.Outcome).Inc()
	m.runDuration.WithLabelValues(stats.Strategy).Observe(stats.Duration.Seconds())
	m.assignedTotal.WithLabelValues(stats.Strategy).Add(float64(stats.Assigned))
	m.unassignedTotal.WithLabelValues(stats.Strategy).Add(float64(stats.Unassigned))
	m.persistFailures.Add(float64(stats.PersistFailures))
	for source, n := range stats.Rejected {
		m.rejectedTotal.WithLabelValues(source).Add(float64(n))
	}
}
