// Package metrics aggregates the Prometheus collectors for the dashboard
// service and exposes helpers for recording gateway and workflow activity.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "idea_dashboard",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idea_dashboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "idea_dashboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idea_dashboard",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total number of backing store calls, by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	gatewayRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "idea_dashboard",
			Subsystem: "gateway",
			Name:      "retries_total",
			Help:      "Total number of retry attempts taken by the gateway.",
		},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "idea_dashboard",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Duration of backing store calls including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"method"},
	)

	digestFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "idea_dashboard",
			Subsystem: "gateway",
			Name:      "digest_fetches_total",
			Help:      "Total number of form digest negotiations.",
		},
		[]string{"outcome"},
	)

	auditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "idea_dashboard",
			Subsystem: "board",
			Name:      "audit_failures_total",
			Help:      "Audit trail events that could not be recorded.",
		},
	)

	reconcileFetches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "idea_dashboard",
			Subsystem: "board",
			Name:      "reconcile_fetches_total",
			Help:      "Delayed reconciliation fetches executed by the board engine.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		gatewayCalls,
		gatewayRetries,
		gatewayDuration,
		digestFetches,
		auditFailures,
		reconcileFetches,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordGatewayCall records a completed backing store call.
func RecordGatewayCall(method string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	gatewayCalls.WithLabelValues(method, outcome).Inc()
	gatewayDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordGatewayRetry records one retry attempt.
func RecordGatewayRetry() {
	gatewayRetries.Inc()
}

// RecordDigestFetch records a form digest negotiation.
func RecordDigestFetch(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	digestFetches.WithLabelValues(outcome).Inc()
}

// RecordAuditFailure records an audit event that was dropped after logging.
func RecordAuditFailure() {
	auditFailures.Inc()
}

// RecordReconcileFetch records one delayed reconciliation fetch.
func RecordReconcileFetch() {
	reconcileFetches.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	if parts[1] == "ideas" && len(parts) > 2 {
		if len(parts) > 3 {
			return "/api/ideas/:id/" + parts[3]
		}
		return "/api/ideas/:id"
	}
	return "/api/" + parts[1]
}
