package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics interface consumed by the services. A Noop
// implementation backs deployments with metrics disabled.
type Recorder interface {
	// Task lifecycle
	RecordTaskCreated()
	RecordTaskFinished(status string, duration time.Duration)
	RecordTasksReaped(count int)
	SetTasksQueued(n int)

	// OAuth flow
	RecordOAuthInitiated(provider string)
	RecordOAuthCallback(provider string, success bool)
	RecordTokenRefresh(provider string, success bool)
	RecordStatusCheck(provider string, valid bool)

	// HTTP
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Task Metrics
	TasksCreatedTotal  prometheus.Counter
	TasksFinishedTotal *prometheus.CounterVec
	TaskDuration       *prometheus.HistogramVec
	TasksReapedTotal   prometheus.Counter
	TasksQueued        prometheus.Gauge

	// OAuth Metrics
	OAuthInitiatedTotal *prometheus.CounterVec
	OAuthCallbackTotal  *prometheus.CounterVec
	TokenRefreshTotal   *prometheus.CounterVec
	StatusCheckTotal    *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		TasksCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gitbridge_tasks_created_total",
				Help: "Total number of chat tasks created",
			},
		),
		TasksFinishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitbridge_tasks_finished_total",
				Help: "Total number of chat tasks reaching a terminal state",
			},
			[]string{"status"}, // completed, failed
		),
		TaskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gitbridge_task_duration_seconds",
				Help:    "Wall time of CLI task executions",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		TasksReapedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gitbridge_tasks_reaped_total",
				Help: "Total number of expired tasks removed by the reaper",
			},
		),
		TasksQueued: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gitbridge_tasks_queued",
				Help: "Tasks waiting for or holding an executor slot",
			},
		),
		OAuthInitiatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitbridge_oauth_initiated_total",
				Help: "Total number of OAuth flows initiated",
			},
			[]string{"provider"},
		),
		OAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitbridge_oauth_callback_total",
				Help: "Total number of OAuth callbacks handled",
			},
			[]string{"provider", "result"}, // success, error
		),
		TokenRefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitbridge_token_refresh_total",
				Help: "Total number of provider token refreshes",
			},
			[]string{"provider", "result"},
		),
		StatusCheckTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitbridge_status_check_total",
				Help: "Total number of connection status probes",
			},
			[]string{"provider", "result"}, // valid, invalid
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gitbridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gitbridge_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (m *Metrics) RecordTaskCreated() {
	m.TasksCreatedTotal.Inc()
}

func (m *Metrics) RecordTaskFinished(status string, duration time.Duration) {
	m.TasksFinishedTotal.WithLabelValues(status).Inc()
	m.TaskDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) RecordTasksReaped(count int) {
	m.TasksReapedTotal.Add(float64(count))
}

func (m *Metrics) SetTasksQueued(n int) {
	m.TasksQueued.Set(float64(n))
}

func (m *Metrics) RecordOAuthInitiated(provider string) {
	m.OAuthInitiatedTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordOAuthCallback(provider string, success bool) {
	m.OAuthCallbackTotal.WithLabelValues(provider, boolResult(success)).Inc()
}

func (m *Metrics) RecordTokenRefresh(provider string, success bool) {
	m.TokenRefreshTotal.WithLabelValues(provider, boolResult(success)).Inc()
}

func (m *Metrics) RecordStatusCheck(provider string, valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.StatusCheckTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func boolResult(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
