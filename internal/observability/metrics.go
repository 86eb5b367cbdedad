// Package observability holds Prometheus collectors and OpenTelemetry setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "profile_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// UsernameChecks counts username validations by outcome. The outcome is
	// "valid", the failed rule, or "error" when the lookup failed.
	UsernameChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_username_checks_total",
		Help: "Total number of username validations by outcome",
	}, []string{"outcome"})

	// LeaderboardRefreshes counts leaderboard refresh runs by competition and status.
	LeaderboardRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profile_leaderboard_refreshes_total",
		Help: "Total number of leaderboard refresh runs",
	}, []string{"competition", "status"})

	// LeaderboardRefreshDuration records how long a refresh run takes.
	LeaderboardRefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "profile_leaderboard_refresh_duration_seconds",
		Help:    "Leaderboard refresh duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"competition"})

	// LeaderboardParticipants is the number of participants stored per competition.
	LeaderboardParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "profile_leaderboard_participants",
		Help: "Number of participants in the stored leaderboard",
	}, []string{"competition"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordUsernameCheck increments the username check counter.
func RecordUsernameCheck(outcome string) {
	UsernameChecks.WithLabelValues(outcome).Inc()
}

// RecordRefresh records the status and duration of one leaderboard refresh.
func RecordRefresh(competition, status string, started time.Time, participants int) {
	LeaderboardRefreshes.WithLabelValues(competition, status).Inc()
	LeaderboardRefreshDuration.WithLabelValues(competition).Observe(time.Since(started).Seconds())
	if status == "success" {
		LeaderboardParticipants.WithLabelValues(competition).Set(float64(participants))
	}
}
