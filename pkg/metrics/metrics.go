package metrics

import "github.com/prometheus/client_golang/prometheus"

// Application counters, registered by the metrics server.
var (
	SessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stillmind_sessions_completed_total",
		Help: "Total number of playback sessions that reached completion",
	})

	HabitEntriesSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stillmind_habit_entries_saved_total",
		Help: "Total number of habit entries persisted",
	})

	PurchasesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stillmind_purchases_total",
		Help: "Total number of purchase attempts by outcome",
	}, []string{"outcome"})

	TrialsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stillmind_trials_started_total",
		Help: "Total number of trials started",
	})

	ContentFallback = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stillmind_content_fallback_total",
		Help: "Total number of catalog loads served from the bundled fallback list",
	})
)

// All returns every application collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		SessionsCompleted,
		HabitEntriesSaved,
		PurchasesTotal,
		TrialsStarted,
		ContentFallback,
	}
}
