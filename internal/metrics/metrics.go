// Package metrics exposes Prometheus collectors for exports, recommendations and
// interaction publishing.
//
// Usage:
//
//	metrics.RecordExport("product", "success", 2*time.Second, 120)
//	metrics.RecordRecommendation("success")
//	metrics.RecordPublish("breaker_open")
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the collectors.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeEmpty       = "empty"
	OutcomeSkipped     = "skipped"
	OutcomeBreakerOpen = "breaker_open"
)

var (
	// ExportsTotal counts export runs by dataset kind and outcome.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalize_exports_total",
			Help: "Total number of dataset export runs",
		},
		[]string{"kind", "outcome"},
	)

	// ExportDuration tracks the wall time of an export run, extraction included.
	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "personalize_export_duration_seconds",
			Help:    "Duration of dataset export runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	// ExportedRecordsTotal counts records shipped per dataset kind.
	ExportedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalize_exported_records_total",
			Help: "Total number of records uploaded to dataset imports",
		},
		[]string{"kind"},
	)

	// RecommendationRequestsTotal counts inference requests by outcome.
	RecommendationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalize_recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"outcome"},
	)

	// EventPublishesTotal counts interaction publishes by outcome.
	EventPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalize_event_publishes_total",
			Help: "Total number of interaction event publishes",
		},
		[]string{"outcome"},
	)
)

// RecordExport records one export run. records is only counted on success.
func RecordExport(kind, outcome string, elapsed time.Duration, records int) {
	ExportsTotal.WithLabelValues(kind, outcome).Inc()
	ExportDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess && records > 0 {
		ExportedRecordsTotal.WithLabelValues(kind).Add(float64(records))
	}
}

// RecordRecommendation records one recommendation request.
func RecordRecommendation(outcome string) {
	RecommendationRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordPublish records one interaction publish attempt.
func RecordPublish(outcome string) {
	EventPublishesTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
