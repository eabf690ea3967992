package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickup_request_operations_total",
			Help: "Total number of pickup request operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickup_request_operation_duration_seconds",
			Help:    "Duration of pickup request operations",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickup_request_status_transitions_total",
			Help: "Statuses assigned to requests by updates",
		},
		[]string{"status"},
	)

	PredictionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_calls_total",
			Help: "Calls made to the price prediction service",
		},
		[]string{"outcome"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prediction_call_duration_seconds",
			Help:    "Latency of the price prediction service",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_errors_total",
			Help: "Events that could not be handed to the broker",
		},
		[]string{"driver"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_cache_lookups_total",
			Help: "Assignee listing cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by route and status code",
		},
		[]string{"method", "route", "code"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

func Handler() http.Handler {
	return promhttp.Handler()
}
