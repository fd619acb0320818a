// Package metrics holds the Prometheus collectors of the transcript services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcripts"

var (
	// SubmissionsTotal counts pipeline runs by outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Total number of transcript request submissions by outcome",
		},
		[]string{"outcome"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Duration of the submission pipeline in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "uploads_total",
			Help:      "Total number of XML hand-offs by delivery mode and result",
		},
		[]string{"mode", "result"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Total number of notification emails by kind and result",
		},
		[]string{"kind", "result"},
	)

	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "callback",
			Name:      "deliveries_total",
			Help:      "Total number of status callback deliveries by result",
		},
		[]string{"result"},
	)

	// ReportRowsTotal counts rows written by the daily follow-up report.
	ReportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "rows_total",
			Help:      "Total number of requests written to follow-up reports",
		},
	)
)

const (
	OutcomeSubmitted      = "submitted"
	OutcomeInvalid        = "invalid"
	OutcomeRenderFailed   = "render_failed"
	OutcomePersistFailed  = "persist_failed"
	OutcomeDeliveryFailed = "delivery_failed"
	OutcomeStatusFailed   = "status_failed"

	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
	ResultRetried  = "retried"
)

func ObserveSubmission(outcome string, started time.Time) {
	SubmissionsTotal.WithLabelValues(outcome).Inc()
	PipelineDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func ObserveDelivery(mode string, err error) {
	DeliveriesTotal.WithLabelValues(mode, result(err)).Inc()
}

func ObserveNotification(kind string, err error) {
	NotificationsTotal.WithLabelValues(kind, result(err)).Inc()
}

func ObserveCallback(res string) {
	CallbacksTotal.WithLabelValues(res).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
