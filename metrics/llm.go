package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		llmCallsLatencyMs,
		llmRetries,
	)
}

var (
	llmCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gleaner_llm_call_latency_ms",
			Help:    "LLM call latency distribution in milliseconds, by profile and success.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 80000},
		},
		[]string{"profile", "success"},
	)

	llmRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gleaner_llm_retries_total",
			Help: "LLM attempts beyond the first, by profile.",
		},
		[]string{"profile"},
	)
)

// LLMObserver records LLM attempts. It satisfies ai.Observer.
type LLMObserver struct{}

// ObserveAttempt records the latency of one attempt and counts retries.
func (LLMObserver) ObserveAttempt(profile string, attempt int, elapsed time.Duration, err error) {
	llmCallsLatencyMs.WithLabelValues(norm(profile), strconv.FormatBool(err == nil)).
		Observe(float64(elapsed.Milliseconds()))
	if attempt > 1 {
		llmRetries.WithLabelValues(norm(profile)).Inc()
	}
}
