// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the MCP server.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors. All collectors live on
// a private registry so tests can build as many instances as they like
// without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal     *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	toolCallDuration *prometheus.HistogramVec
	activeChannels   prometheus.Gauge
}

// NewMetrics creates and registers the server's collectors. sessionCount,
// when non-nil, is polled for the live session gauge.
func NewMetrics(sessionCount func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rustymail_mcp",
			Name:      "requests_total",
			Help:      "JSON-RPC requests dispatched, by method and outcome.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rustymail_mcp",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC dispatch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		toolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rustymail_mcp",
			Name:      "tool_call_duration_seconds",
			Help:      "Tool execution latency, by tool and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool", "status"}),
		activeChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rustymail_mcp",
			Name:      "sse_channels_active",
			Help:      "Currently open SSE event channels.",
		}),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.toolCallDuration,
		m.activeChannels,
	)

	if sessionCount != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rustymail_mcp",
			Name:      "sessions_active",
			Help:      "Currently tracked sessions.",
		}, sessionCount))
	}

	return m
}

// RecordRequest records one dispatched request.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordToolCall records one tool execution.
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCallDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
}

// ChannelOpened increments the active SSE channel gauge.
func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.activeChannels.Inc()
}

// ChannelClosed decrements the active SSE channel gauge.
func (m *Metrics) ChannelClosed() {
	if m == nil {
		return
	}
	m.activeChannels.Dec()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
