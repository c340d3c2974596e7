package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	balanceUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_updates_total",
			Help: "Total number of finished balance updates labeled by outcome",
		},
		[]string{"outcome"},
	)
	weatherFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_fetch_total",
			Help: "Total number of temperature lookups labeled by source (live, cache, fallback)",
		},
		[]string{"source"},
	)
	weatherFetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_fetch_duration_seconds",
			Help:    "Duration of temperature lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	updateQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "update_queue_depth",
			Help: "Number of balance updates waiting for a worker",
		},
	)
	updatesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "update_submissions_rejected_total",
			Help: "Balance update submissions refused before queuing, by reason",
		},
		[]string{"reason"},
	)
)

// RecordUpdate counts a finished update.
func RecordUpdate(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	balanceUpdatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch counts a temperature lookup and records its duration.
func ObserveFetch(source string, d time.Duration) {
	if source == "" {
		source = "unknown"
	}
	weatherFetchTotal.WithLabelValues(source).Inc()
	weatherFetchDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
}

// SetQueueDepth updates the queue gauge.
func SetQueueDepth(n int) {
	updateQueueDepth.Set(float64(n))
}

// RecordSubmissionRejected counts a refused submission (queue_full, closed).
func RecordSubmissionRejected(reason string) {
	updatesRejectedTotal.WithLabelValues(reason).Inc()
}
