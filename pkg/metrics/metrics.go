package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homegrid_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// VerificationRequests counts verification code requests by channel and
	// outcome (dispatched|rejected|dispatch_failed).
	VerificationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homegrid_verification_requests_total",
			Help: "Total number of verification code requests",
		},
		[]string{"channel", "outcome"},
	)

	// VerificationConfirms counts confirmation attempts by channel and result
	// (verified|invalid).
	VerificationConfirms = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homegrid_verification_confirms_total",
			Help: "Total number of verification confirmation attempts",
		},
		[]string{"channel", "result"},
	)

	// NotificationsSent counts outbound notifications by channel and status (sent|failed).
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homegrid_notifications_sent_total",
			Help: "Total number of outbound verification notifications",
		},
		[]string{"channel", "status"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homegrid_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homegrid_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
