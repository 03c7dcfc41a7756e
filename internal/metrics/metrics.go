// Package metrics registers the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dukandaar_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dukandaar_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Listing Metrics
	ListingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dukandaar_listings_submitted_total",
			Help: "Total number of submitted listings",
		},
		[]string{"category"},
	)

	ModerationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dukandaar_moderation_decisions_total",
			Help: "Total number of moderation decisions",
		},
		[]string{"outcome"}, // "approved", "rejected"
	)

	ImageUploadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dukandaar_image_upload_failures_total",
			Help: "Total number of listing images that failed to upload",
		},
	)

	// Points Metrics
	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dukandaar_points_awarded_total",
			Help: "Total number of points awarded",
		},
		[]string{"reason"}, // "submission", "review"
	)

	MilestonesCrossed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dukandaar_milestones_crossed_total",
			Help: "Total number of milestones crossed",
		},
		[]string{"milestone"},
	)

	// Event Metrics
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dukandaar_events_consumed_total",
			Help: "Total number of consumed domain events",
		},
		[]string{"topic", "result"}, // result: "ok", "error"
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAward records points granted to a user and the milestones it crossed.
func RecordAward(reason string, delta int, crossed []int) {
	PointsAwarded.WithLabelValues(reason).Add(float64(delta))
	for _, m := range crossed {
		MilestonesCrossed.WithLabelValues(strconv.Itoa(m)).Inc()
	}
}

// RecordEvent records the outcome of handling an event.
func RecordEvent(topic string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsConsumed.WithLabelValues(topic, result).Inc()
}
