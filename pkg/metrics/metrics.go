package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts records login attempts by method (credentials|google)
	// and result (success|failure|needs_verification).
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgate_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"method", "result"},
	)

	// Signups counts account registrations by result (success|conflict|error).
	Signups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgate_signups_total",
			Help: "Total number of signup attempts",
		},
		[]string{"result"},
	)

	// TokenRefreshes counts refresh-token exchanges by result (success|denied).
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelgate_token_refreshes_total",
			Help: "Total number of refresh token exchanges",
		},
		[]string{"result"},
	)

	// PasswordResets counts completed password resets.
	PasswordResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelgate_password_resets_total",
			Help: "Total number of completed password resets",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelgate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
