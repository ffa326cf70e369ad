// Copyright 2025 The mcpengine Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors a StreamableHTTPHandler and
// StreamableClientTransport report against. A nil *Metrics is valid
// everywhere it is used: every method on it is a no-op, so instrumentation
// is opt-in.
type Metrics struct {
	sessionsActive    prometheus.Gauge
	sessionsTotal     prometheus.Counter
	eventsStored      prometheus.Counter
	reconnectAttempts *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to publish on the default /metrics
// endpoint, or a prometheus.NewRegistry() for an isolated one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mcp_sessions_active",
			Help: "Number of currently open MCP sessions.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcp_sessions_total",
			Help: "Total number of MCP sessions accepted.",
		}),
		eventsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcp_events_stored_total",
			Help: "Total number of SSE events persisted to the event store.",
		}),
		reconnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcp_client_reconnect_attempts_total",
				Help: "Total number of Streamable-HTTP client reconnection attempts.",
			},
			[]string{"stream"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcp_request_duration_seconds",
				Help:    "Latency of dispatched JSON-RPC requests, by method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	reg.MustRegister(
		m.sessionsActive,
		m.sessionsTotal,
		m.eventsStored,
		m.reconnectAttempts,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) eventStored() {
	if m == nil {
		return
	}
	m.eventsStored.Inc()
}

func (m *Metrics) reconnectAttempted(stream string) {
	if m == nil {
		return
	}
	m.reconnectAttempts.WithLabelValues(stream).Inc()
}

func (m *Metrics) observeRequestDuration(method string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method).Observe(seconds)
}
