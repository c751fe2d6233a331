// Package metrics holds the Prometheus collectors for billing runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	billsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ezrent_bills_generated_total",
			Help: "Total number of bills computed and persisted.",
		},
	)
	billFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezrent_bill_failures_total",
			Help: "Total number of tenants whose bill could not be generated, by failure kind.",
		},
		[]string{"kind"},
	)
	billingRunDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ezrent_billing_run_duration_seconds",
			Help:    "Duration of bill generation runs in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	lateFeesAssessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ezrent_late_fees_assessed_total",
			Help: "Total number of late fee charges recorded.",
		},
	)
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezrent_events_published_total",
			Help: "Bill events handed to the broker, by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

// ObserveBillingRun records the outcome of one generation run
func ObserveBillingRun(mode string, generated int, failureKinds []string, dur time.Duration) {
	billsGeneratedTotal.Add(float64(generated))
	for _, kind := range failureKinds {
		billFailuresTotal.WithLabelValues(kind).Inc()
	}
	billingRunDurationSeconds.WithLabelValues(mode).Observe(dur.Seconds())
}

// ObserveLateFees records late fee charges created by one assessment
func ObserveLateFees(n int) {
	lateFeesAssessedTotal.Add(float64(n))
}

// ObserveEvent records a publish attempt
func ObserveEvent(eventType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	eventsPublishedTotal.WithLabelValues(eventType, outcome).Inc()
}
