package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	storageErrors   *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	orderStatus     *prometheus.CounterVec
	draftsSaved     prometheus.Counter
	jobRuns         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restodesk_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restodesk_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restodesk_storage_errors_total",
			Help: "Storage failures by kind.",
		}, []string{"kind"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restodesk_orders_created_total",
			Help: "Orders taken.",
		}),
		orderStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restodesk_order_status_transitions_total",
			Help: "Order status transitions by target status.",
		}, []string{"status"}),
		draftsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restodesk_form_drafts_saved_total",
			Help: "Form drafts persisted by autosave or explicit save.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restodesk_scheduler_job_runs_total",
			Help: "Background job runs by job and result.",
		}, []string{"job", "result"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.storageErrors,
		m.ordersCreated,
		m.orderStatus,
		m.draftsSaved,
		m.jobRuns,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) StorageError(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.storageErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) OrderStatus(status string) {
	if m == nil {
		return
	}
	m.orderStatus.WithLabelValues(status).Inc()
}

func (m *Metrics) DraftSaved() {
	if m == nil {
		return
	}
	m.draftsSaved.Inc()
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}
