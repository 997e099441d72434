package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the session core and its
// control-plane surface.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsLive    prometheus.Gauge
	SessionsEngaged prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsEvicted prometheus.Counter
	SessionsRemoved prometheus.Counter
	SessionSwitches prometheus.Counter

	// Connection metrics
	ConnectionAttempts prometheus.Counter
	ConnectionFailures prometheus.Counter

	// History metrics
	HistoryEntries prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viewhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		SessionsLive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "viewhub_sessions_live",
			Help: "Number of live sessions",
		}),
		SessionsEngaged: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "viewhub_sessions_engaged",
			Help: "Number of sessions connecting or connected",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewhub_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewhub_sessions_evicted_total",
			Help: "Total number of sessions evicted at capacity",
		}),
		SessionsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewhub_sessions_removed_total",
			Help: "Total number of sessions removed explicitly",
		}),
		SessionSwitches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewhub_session_switches_total",
			Help: "Total number of active-session switches",
		}),

		ConnectionAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewhub_connection_attempts_total",
			Help: "Total number of reported connection attempts",
		}),
		ConnectionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "viewhub_connection_failures_total",
			Help: "Total number of reported connection failures",
		}),

		HistoryEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "viewhub_history_entries",
			Help: "Number of recent-server history entries",
		}),

		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "viewhub_ws_connections",
			Help: "Number of active WebSocket event subscribers",
		}),

		Uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "viewhub_uptime_seconds",
			Help: "Process uptime in seconds",
		}),
	}
}

// RecordHTTPRequest records metrics for one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// SetSessionCounts updates the live and engaged session gauges.
func (m *Metrics) SetSessionCounts(live, engaged int) {
	m.SessionsLive.Set(float64(live))
	m.SessionsEngaged.Set(float64(engaged))
}
