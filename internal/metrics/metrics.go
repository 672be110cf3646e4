// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrpass_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrpass_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	passOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrpass_pass_operations_total",
		Help: "Pass issue/consume/verify/revoke operations by result",
	}, []string{"operation", "result"})

	slotTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrpass_slot_transitions_total",
		Help: "Booking workflow operations by result",
	}, []string{"operation", "result"})

	adminLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrpass_admin_logins_total",
		Help: "Admin login attempts by outcome",
	}, []string{"outcome"})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hrpass_notifications_total",
		Help: "Outbound notifications by channel and result",
	}, []string{"channel", "result"})

	txRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrpass_tx_retries_total",
		Help: "Transactions retried after lock contention",
	})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObservePass counts a pass operation ("issue", "consume", ...) with its
// result ("ok", "exhausted", ...).
func ObservePass(operation, result string) {
	passOperations.WithLabelValues(operation, result).Inc()
}

// ObserveSlot counts a booking workflow operation.
func ObserveSlot(operation, result string) {
	slotTransitions.WithLabelValues(operation, result).Inc()
}

// ObserveLogin counts an admin login attempt.
func ObserveLogin(outcome string) {
	adminLogins.WithLabelValues(outcome).Inc()
}

// ObserveNotification counts an outbound email or WhatsApp message.
func ObserveNotification(channel, result string) {
	notificationsSent.WithLabelValues(channel, result).Inc()
}

// IncTxRetry counts one retried transaction.
func IncTxRetry() { txRetries.Inc() }
