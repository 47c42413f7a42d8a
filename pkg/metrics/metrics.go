package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"AlsitoQC/internal/models"
)

// Metrics 指标管理器. Each instance owns its registry so several can
// coexist in one process (tests, multiple routers).
type Metrics struct {
	registry *prometheus.Registry

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 业务指标
	transitionsTotal   *prometheus.CounterVec
	locationTotal      *prometheus.CounterVec
	locationDuration   prometheus.Histogram
	loginTotal         *prometheus.CounterVec
	loginDuration      prometheus.Histogram
	verificationEvents *prometheus.CounterVec
	activeFlows        prometheus.Gauge
	rateLimited        *prometheus.CounterVec
}

// NewMetrics 创建指标管理器
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_transitions_total",
			Help: "Report workflow state transitions",
		}, []string{"from", "to"}),
		locationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "location_acquisitions_total",
			Help: "Automatic location attempts by outcome",
		}, []string{"status"}),
		locationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "location_acquisition_seconds",
			Help:    "Time spent acquiring a location",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		loginDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "login_duration_seconds",
			Help:    "Login request duration",
			Buckets: prometheus.DefBuckets,
		}),
		verificationEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_verification_events_total",
			Help: "Verification inputs received while reporting",
		}, []string{"kind"}),
		activeFlows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "report_flows_active",
			Help: "Report flows currently held in memory",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Requests seen by the rate limiter",
		}, []string{"route", "result"}),
	}
	reg.MustRegister(
		m.httpRequestsTotal, m.httpRequestDuration,
		m.transitionsTotal, m.locationTotal, m.locationDuration,
		m.loginTotal, m.loginDuration, m.verificationEvents, m.activeFlows, m.rateLimited,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordHTTPRequest 记录HTTP请求
func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) ObserveTransition(from, to string) {
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveLocation(status models.LocationStatus, d time.Duration) {
	m.locationTotal.WithLabelValues(status.String()).Inc()
	m.locationDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveLogin(outcome string, d time.Duration) {
	m.loginTotal.WithLabelValues(outcome).Inc()
	m.loginDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveVerification(kind string) {
	m.verificationEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetActiveFlows(n int) {
	m.activeFlows.Set(float64(n))
}

func (m *Metrics) ObserveRateLimit(route string, allowed bool) {
	result := "allow"
	if !allowed {
		result = "deny"
	}
	m.rateLimited.WithLabelValues(route, result).Inc()
}
