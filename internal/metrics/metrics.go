// Package metrics exposes Prometheus collectors for the course generation
// pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcome labels.
const (
	OutcomeCompleted   = "completed"
	OutcomeInvalid     = "invalid_request"
	OutcomeGeneration  = "generation_failed"
	OutcomePersistence = "persistence_failed"
	OutcomeStatus      = "status_publish_failed"
)

var (
	requestsTotal             *prometheus.CounterVec
	lessonsGeneratedTotal     prometheus.Counter
	generationDurationSeconds prometheus.Histogram
	statusEventsTotal         *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "course_requests_total",
				Help: "Total number of generation requests processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		lessonsGeneratedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "course_lessons_generated_total",
				Help: "Total number of lessons generated across all courses.",
			},
		)

		generationDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "course_generation_duration_seconds",
				Help:    "Histogram of end-to-end course generation latencies.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		)

		statusEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "course_status_events_total",
				Help: "Total number of status events observed, labeled by state.",
			},
			[]string{"state"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records the outcome of one generation request.
func ObserveRequest(outcome string) {
	requestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCourse records a completed course: its lesson count and how long the
// full pipeline took.
func ObserveCourse(lessons int, duration time.Duration) {
	lessonsGeneratedTotal.Add(float64(lessons))
	generationDurationSeconds.Observe(duration.Seconds())
}

// ObserveStatusEvent increments the status event counter for the given state.
func ObserveStatusEvent(state string) {
	statusEventsTotal.WithLabelValues(state).Inc()
}
