package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "hoken"

// MetricsService owns the prometheus registry and the collectors the rest
// of the application reports into.
type MetricsService struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheOps        *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
}

// NewMetricsService builds the registry and registers every collector.
func NewMetricsService() *MetricsService {
	s := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP request count by route template.",
		}, []string{"method", "path", "status"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "statistics_cache_operations_total",
			Help:      "Statistics cache lookups partitioned into hits and misses.",
		}, []string{"result"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query latency by query name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
	}
	s.registry.MustRegister(s.requestDuration, s.requestTotal, s.cacheOps, s.dbQueryDuration)
	return s
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records latency and count for one finished request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation counts one statistics cache lookup.
func (s *MetricsService) RecordCacheOperation(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	s.cacheOps.WithLabelValues(result).Inc()
}

// ObserveDBQuery records the duration of a named query.
func (s *MetricsService) ObserveDBQuery(query string, duration time.Duration) {
	s.dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
