package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChallengesIssued tracks generated challenges by network
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questauth_challenges_issued_total",
			Help: "The total number of challenges issued",
		},
		[]string{"network"},
	)

	// Verifications tracks signature verifications by flow and outcome
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questauth_verifications_total",
			Help: "The total number of signature verifications",
		},
		[]string{"flow", "result"}, // sign_in/link, success/failed
	)

	// AccountsCreated tracks accounts created on first sign-in
	AccountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "questauth_accounts_created_total",
		Help: "The total number of accounts created",
	})

	// SessionsPruned tracks session tokens removed by the prune sweep
	SessionsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "questauth_sessions_pruned_total",
		Help: "The total number of expired session tokens deleted",
	})

	// RateLimited tracks requests rejected by the rate limiter
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "questauth_rate_limited_total",
		Help: "The total number of requests rejected by the rate limiter",
	})

	// HTTPRequestDuration tracks request latency by route and status
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "questauth_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordChallenge records an issued challenge
func RecordChallenge(network string) {
	ChallengesIssued.WithLabelValues(network).Inc()
}

// RecordVerification records the outcome of a verification
func RecordVerification(flow string, success bool) {
	result := "success"
	if !success {
		result = "failed"
	}
	Verifications.WithLabelValues(flow, result).Inc()
}

// RecordPruned records deleted session tokens
func RecordPruned(count int) {
	SessionsPruned.Add(float64(count))
}
