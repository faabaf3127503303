// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the variable store.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the server registers.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	variableOps     *prometheus.CounterVec
	quotaRejections *prometheus.CounterVec
	orphansDeleted  prometheus.Counter
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "varhold",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "varhold",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		variableOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "varhold",
			Name:      "variable_operations_total",
			Help:      "Variable store operations by type and outcome.",
		}, []string{"operation", "outcome"}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "varhold",
			Name:      "quota_rejections_total",
			Help:      "Requests rejected by quota checks, by quota type.",
		}, []string{"quota"}),
		orphansDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "varhold",
			Name:      "orphan_blobs_deleted_total",
			Help:      "Orphan blobs removed by the reconciliation sweep.",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.variableOps,
		m.quotaRejections,
		m.orphansDeleted,
	)
	return m
}

// ObserveVariableOp records a variable store operation outcome.
func (m *Metrics) ObserveVariableOp(operation, outcome string) {
	m.variableOps.WithLabelValues(operation, outcome).Inc()
}

// ObserveQuotaRejection records a quota-rejected request.
func (m *Metrics) ObserveQuotaRejection(quotaType string) {
	m.quotaRejections.WithLabelValues(quotaType).Inc()
}

// AddOrphansDeleted records blobs removed by a reconciliation sweep.
func (m *Metrics) AddOrphansDeleted(n int) {
	m.orphansDeleted.Add(float64(n))
}

// Middleware instruments every request. The route label uses the gin
// route template, not the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
