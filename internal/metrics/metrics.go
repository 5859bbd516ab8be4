package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonlift_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lessonlift_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonlift_gate_decisions_total",
			Help: "Entitlement checks by outcome (allowed, a denial reason, or error).",
		},
		[]string{"outcome"},
	)

	LessonsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonlift_lessons_generated_total",
			Help: "Lesson generation attempts by final status.",
		},
		[]string{"status"},
	)

	GenerationAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lessonlift_generation_attempts",
			Help:    "Model calls needed per lesson to reach the word floor.",
			Buckets: []float64{1, 2, 3},
		},
	)

	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lessonlift_generation_duration_seconds",
			Help:    "Time spent in the text generator per lesson.",
			Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
	)

	CheckoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonlift_checkout_sessions_total",
			Help: "Checkout sessions created by plan and status.",
		},
		[]string{"plan", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GateDecisionsTotal,
		LessonsGeneratedTotal,
		GenerationAttempts,
		GenerationDuration,
		CheckoutSessionsTotal,
	)
}
