// Package metrics holds the Prometheus collectors exported on GET /metrics.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	logsIngested     *prometheus.CounterVec
	produced         prometheus.Counter
	produceFailures  prometheus.Counter
	deliveryFailures prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status_code"}),

		logsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logs_ingested_total",
			Help: "Total number of logs accepted for processing",
		}, []string{"service", "severity"}),

		produced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broker_messages_produced_total",
			Help: "Total number of records accepted by the broker producer",
		}),

		produceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broker_produce_failures_total",
			Help: "Total number of records the producer refused or timed out on",
		}),

		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broker_delivery_failures_total",
			Help: "Total number of enqueued records that were never delivered",
		}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.logsIngested,
		m.produced,
		m.produceFailures,
		m.deliveryFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Middleware records request count and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) LogIngested(service, severity string) {
	if m == nil {
		return
	}
	m.logsIngested.WithLabelValues(service, severity).Inc()
}

func (m *Metrics) Produced(n int) {
	if m == nil {
		return
	}
	m.produced.Add(float64(n))
}

func (m *Metrics) ProduceFailed(n int) {
	if m == nil {
		return
	}
	m.produceFailures.Add(float64(n))
}

func (m *Metrics) DeliveryFailed(n int) {
	if m == nil {
		return
	}
	m.deliveryFailures.Add(float64(n))
}
