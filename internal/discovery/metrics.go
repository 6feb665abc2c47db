package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_swipes_total",
			Help: "Total number of swipes recorded, by direction",
		},
		[]string{"direction"},
	)

	swipesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_swipes_rejected_total",
			Help: "Swipes rejected before persisting, by reason",
		},
		[]string{"reason"},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_matches_total",
			Help: "Total number of matches created",
		},
	)

	undosTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_undos_total",
			Help: "Undo attempts, by outcome",
		},
		[]string{"outcome"},
	)

	dailyPicksServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_daily_picks_served_total",
			Help: "Daily picks surfaced to users",
		},
	)

	sessionVelocityWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_session_velocity_warnings_total",
			Help: "Swipes flagged for suspicious velocity",
		},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discovery_compatibility_scores",
			Help:    "Distribution of computed compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

// RecordSwipeMetric counts one persisted swipe.
func RecordSwipeMetric(direction SwipeDirection) {
	swipesTotal.WithLabelValues(string(direction)).Inc()
}

// RecordRejectedSwipe counts a swipe blocked by a gate.
func RecordRejectedSwipe(reason string) {
	swipesRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordMatch counts one created match.
func RecordMatch() {
	matchesTotal.Inc()
}

// RecordUndo counts one undo attempt by outcome.
func RecordUndo(outcome string) {
	undosTotal.WithLabelValues(outcome).Inc()
}

// RecordDailyPick counts one surfaced daily pick.
func RecordDailyPick() {
	dailyPicksServed.Inc()
}

// RecordCompatibilityScore observes a computed (non-sentinel) score.
func RecordCompatibilityScore(score int) {
	if score >= 0 {
		compatibilityScores.Observe(float64(score))
	}
}
