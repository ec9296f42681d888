package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts Stripe webhook requests by event type and HTTP status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealplan",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mealplan",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// ReconciliationTotal counts state machine transitions by cause and outcome
	// (applied, stale, released, failed).
	ReconciliationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealplan",
		Subsystem: "billing",
		Name:      "reconciliation_total",
		Help:      "Profile reconciliations by cause and outcome.",
	}, []string{"cause", "outcome"})

	// StatusCacheLookups counts check-subscription cache lookups by result (hit, miss, error).
	StatusCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealplan",
		Subsystem: "profile",
		Name:      "status_cache_lookups_total",
		Help:      "Subscription status cache lookups by result.",
	}, []string{"result"})

	MealPlanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mealplan",
		Subsystem: "generator",
		Name:      "request_duration_seconds",
		Help:      "Meal plan generation latency by result.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"result"})
)
