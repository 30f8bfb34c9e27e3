package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Agent metrics
	AgentRunsTotal      *prometheus.CounterVec
	AgentRunDuration    *prometheus.HistogramVec
	AgentRunErrorsTotal *prometheus.CounterVec

	// Tool metrics
	ToolExecutionsTotal      *prometheus.CounterVec
	ToolExecutionErrorsTotal *prometheus.CounterVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsPurged  prometheus.Counter

	// Proxy metrics
	ProxyRequestsTotal   *prometheus.CounterVec
	ProxyRequestDuration *prometheus.HistogramVec
	ProxyErrorsTotal     prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		AgentRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_agent_runs_total",
				Help: "Total number of agent runs",
			},
			[]string{"agent", "status"},
		),
		AgentRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentd_agent_run_duration_seconds",
				Help:    "Duration of agent runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
		AgentRunErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_agent_run_errors_total",
				Help: "Total number of agent run errors",
			},
			[]string{"agent", "error_type"},
		),

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool", "status"},
		),
		ToolExecutionErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_tool_execution_errors_total",
				Help: "Total number of tool execution errors",
			},
			[]string{"tool"},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentd_sessions_active",
				Help: "Number of stored sessions",
			},
		),
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agentd_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agentd_sessions_purged_total",
				Help: "Total number of sessions purged by cleanup",
			},
		),

		ProxyRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentd_proxy_requests_total",
				Help: "Total number of proxied requests",
			},
			[]string{"method", "status"},
		),
		ProxyRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentd_proxy_request_duration_seconds",
				Help:    "Duration of proxied requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ProxyErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agentd_proxy_errors_total",
				Help: "Total number of proxy upstream failures",
			},
		),
	}

	registry.MustRegister(
		m.AgentRunsTotal,
		m.AgentRunDuration,
		m.AgentRunErrorsTotal,
		m.ToolExecutionsTotal,
		m.ToolExecutionErrorsTotal,
		m.SessionsActive,
		m.SessionsCreated,
		m.SessionsPurged,
		m.ProxyRequestsTotal,
		m.ProxyRequestDuration,
		m.ProxyErrorsTotal,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
