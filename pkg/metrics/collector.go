// Package metrics defines the Prometheus collectors for the bind protocol.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusError   = "error"

	OutcomeCreated = "created"
	OutcomeRebound = "rebound"
)

var (
	bindTokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bind_tokens_issued_total",
			Help: "Total number of bind tokens minted",
		},
	)
	bindConfirmsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bind_confirms_total",
			Help: "Total number of bind confirmation attempts labeled by status",
		},
		[]string{"status"},
	)
	bindingsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_bindings_written_total",
			Help: "Total number of binding writes labeled by outcome",
		},
		[]string{"outcome"},
	)
	tokensCleanedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bind_tokens_cleaned_total",
			Help: "Total number of used or expired bind tokens removed by cleanup",
		},
	)
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions per route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
)

// RecordTokenIssued counts a successful mint.
func RecordTokenIssued() {
	bindTokensIssuedTotal.Inc()
}

// RecordConfirm counts a confirmation attempt by outcome status.
func RecordConfirm(status string) {
	if status == "" {
		status = "unknown"
	}

	bindConfirmsTotal.WithLabelValues(status).Inc()
}

// RecordBindingWritten counts a binding insert or rebind.
func RecordBindingWritten(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}

	bindingsWrittenTotal.WithLabelValues(outcome).Inc()
}

// RecordTokensCleaned counts rows removed by the cleanup job.
func RecordTokensCleaned(n int64) {
	if n <= 0 {
		return
	}

	tokensCleanedTotal.Add(float64(n))
}

// RecordHTTPRequest counts a handled request and records its duration.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}

	httpRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
