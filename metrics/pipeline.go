package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsFinished,
		jobsInFlight,
		chunksProcessed,
		repairOutcomes,
		cleanupFallbacks,
		jobDurationSeconds,
	)
}

var (
	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_jobs_finished_total",
			Help: "Ingestion jobs that reached a terminal status, by status and failure kind.",
		},
		[]string{"status", "failure"},
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gleaner_jobs_in_flight",
			Help: "Ingestion jobs currently running.",
		},
	)

	chunksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_chunks_total",
			Help: "Chunks submitted for extraction, by outcome.",
		},
		[]string{"outcome"},
	)

	repairOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_reply_parse_total",
			Help: "LLM replies parsed, by the repair step that succeeded.",
		},
		[]string{"step"},
	)

	cleanupFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gleaner_cleanup_fallbacks_total",
			Help: "Jobs that stored the merged record because cleanup failed.",
		},
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gleaner_job_duration_seconds",
			Help:    "Wall time from job start to terminal status.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)
)

// JobStarted marks a job as running.
func JobStarted() {
	jobsInFlight.Inc()
}

// JobFinished records a terminal status. failure is empty for completed jobs.
func JobFinished(status, failure string, seconds float64) {
	jobsInFlight.Dec()
	if failure == "" {
		failure = "none"
	}
	jobsFinished.WithLabelValues(norm(status), failure).Inc()
	jobDurationSeconds.WithLabelValues(norm(status)).Observe(seconds)
}

// ChunkOutcome counts one chunk by outcome, e.g. "ok" or a failure kind.
func ChunkOutcome(outcome string) {
	chunksProcessed.WithLabelValues(norm(outcome)).Inc()
}

// ReplyParsed counts one parse attempt by the repair step that succeeded.
func ReplyParsed(step string) {
	repairOutcomes.WithLabelValues(norm(step)).Inc()
}

// CleanupFallback counts a job that fell back to its merged record.
func CleanupFallback() {
	cleanupFallbacks.Inc()
}
