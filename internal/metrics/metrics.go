package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadtrack_events_normalized_total",
		Help: "Total number of submissions normalized into canonical events.",
	})

	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadtrack_validation_failures_total",
		Help: "Total number of submissions rejected by schema validation.",
	})

	ForwardOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadtrack_forward_outcomes_total",
		Help: "Vendor forwarding outcomes, labelled by vendor and status.",
	}, []string{"vendor", "status"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadtrack_webhook_events_total",
		Help: "Delivery callbacks received, labelled by type and outcome.",
	}, []string{"type", "outcome"})

	WebhookAuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadtrack_webhook_auth_failures_total",
		Help: "Webhook requests rejected for signature verification failure.",
	})

	AttributionCaptures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadtrack_attribution_captures_total",
		Help: "Page-load attribution capture merges performed.",
	})

	NormalizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leadtrack_normalize_duration_ms",
		Help:    "Submission normalization latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadtrack_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})
)
