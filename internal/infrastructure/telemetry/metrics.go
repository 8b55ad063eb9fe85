// Package telemetry wires Prometheus metrics, OpenTelemetry tracing and
// Pyroscope profiling for the gateway.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

const namespace = "odoo_gateway"

// Outcome labels for RPC and webhook metrics
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the gateway's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	rpcDuration       *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	webhookDeliveries *prometheus.CounterVec
	webhookQueueDepth prometheus.Gauge
	webhookDropped    prometheus.Counter
	duplicationJobs   *prometheus.CounterVec
}

// NewMetrics registers all collectors, including the Go runtime and process
// collectors, on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "odoo_rpc_duration_seconds",
			Help:      "Latency of Odoo XML-RPC calls.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service", "model", "method", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		webhookQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "webhook_queue_depth",
			Help:      "Events waiting in the webhook dispatch queue.",
		}),
		webhookDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_dropped_total",
			Help:      "Events dropped because the dispatch queue was full.",
		}),
		duplicationJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplication_jobs_total",
			Help:      "Finished database duplication jobs by final status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcDuration,
		m.httpRequests,
		m.httpDuration,
		m.webhookDeliveries,
		m.webhookQueueDepth,
		m.webhookDropped,
		m.duplicationJobs,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRPC implements odoo.Observer
func (m *Metrics) ObserveRPC(service, model, method string, elapsed time.Duration, err error) {
	if model == "" {
		model = "-"
	}
	m.rpcDuration.WithLabelValues(service, model, method, RPCOutcome(err)).Observe(elapsed.Seconds())
}

// ObserveHTTP records one handled request. route is the gin route template,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// WebhookDelivered counts one delivery attempt
func (m *Metrics) WebhookDelivered(channel string, success bool) {
	outcome := OutcomeOK
	if !success {
		outcome = OutcomeError
	}
	m.webhookDeliveries.WithLabelValues(channel, outcome).Inc()
}

// WebhookDropped counts an event rejected by a full queue
func (m *Metrics) WebhookDropped() {
	m.webhookDropped.Inc()
}

// SetWebhookQueueDepth reports the current queue length
func (m *Metrics) SetWebhookQueueDepth(n int) {
	m.webhookQueueDepth.Set(float64(n))
}

// DuplicationFinished counts a job reaching a final status
func (m *Metrics) DuplicationFinished(status string) {
	m.duplicationJobs.WithLabelValues(status).Inc()
}

// RPCOutcome turns an RPC error into a bounded label value: "ok", the Odoo
// fault kind, or "error" for transport failures.
func RPCOutcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var rpcErr *odoo.RPCError
	if errors.As(err, &rpcErr) {
		return string(rpcErr.Kind)
	}
	if errors.Is(err, odoo.ErrAuthenticationFailed) {
		return "auth"
	}
	return OutcomeError
}
