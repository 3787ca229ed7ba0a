package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestCount     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ResponseSize     *prometheus.HistogramVec
	ReloadCount      *prometheus.CounterVec
	BroadcastCount   *prometheus.CounterVec
	BroadcastErrors  prometheus.Counter
	ConnectedClients prometheus.Gauge
	RouteTableSize   prometheus.Gauge
	HealthStatus     prometheus.Gauge

	registry *prometheus.Registry
	handler  http.Handler
}

func NewMetrics() *Metrics {
	return &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint", "status_code"},
		),
		ReloadCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dev_reloads_total",
				Help: "Total number of processed source changes by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		BroadcastCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dev_broadcasts_total",
				Help: "Total number of push-protocol frames broadcast by message type",
			},
			[]string{"type"},
		),
		BroadcastErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dev_broadcast_send_errors_total",
				Help: "Total number of per-client send failures during broadcasts",
			},
		),
		ConnectedClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dev_connected_clients",
				Help: "Number of live-reload clients currently connected",
			},
		),
		RouteTableSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "route_table_entries",
				Help: "Number of entries in the live route table",
			},
		),
		HealthStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "app_health_status",
				Help: "Application health status (1 = healthy, 0 = unhealthy)",
			},
		),
	}
}

func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration, responseSize int64) {
	status := strconv.Itoa(statusCode)

	m.RequestCount.WithLabelValues(method, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, endpoint, status).Observe(float64(responseSize))
}

func (m *Metrics) RecordReload(category, outcome string) {
	m.ReloadCount.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) RecordBroadcast(msgType string) {
	m.BroadcastCount.WithLabelValues(msgType).Inc()
}

func (m *Metrics) SetHealthStatus(healthy bool) {
	if healthy {
		m.HealthStatus.Set(1)
	} else {
		m.HealthStatus.Set(0)
	}
}

func (m *Metrics) Handler() http.Handler {
	if m.handler != nil {
		return m.handler
	}
	return promhttp.Handler()
}

func (m *Metrics) Register() error {
	m.registry = prometheus.NewRegistry()

	collectors := []prometheus.Collector{
		m.RequestCount,
		m.RequestDuration,
		m.ResponseSize,
		m.ReloadCount,
		m.BroadcastCount,
		m.BroadcastErrors,
		m.ConnectedClients,
		m.RouteTableSize,
		m.HealthStatus,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}

	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	return nil
}
