// internal/metrics/metrics.go

// Package metrics provides Prometheus metrics for the donation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IntakesStarted counts donation wizards opened.
	IntakesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandir_intakes_started_total",
			Help: "Total number of donation intake flows started",
		},
	)

	// IntakeValidationFailures counts rejected form fields by field name.
	IntakeValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandir_intake_validation_failures_total",
			Help: "Total number of field validation failures in the intake flow",
		},
		[]string{"field"},
	)

	// PaymentRedirects counts UPI deep links handed to donors.
	PaymentRedirects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandir_payment_redirects_total",
			Help: "Total number of UPI payment redirects issued",
		},
	)

	// PaymentIntentTransitions counts intent status changes.
	PaymentIntentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandir_payment_intent_transitions_total",
			Help: "Total number of payment intent status transitions",
		},
		[]string{"to_status"},
	)

	// DonationsRecorded counts donation rows written by this service.
	DonationsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandir_donations_recorded_total",
			Help: "Total number of donation records inserted",
		},
		[]string{"source"},
	)

	// DonationAmountRecorded sums rupees recorded.
	DonationAmountRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandir_donation_amount_rupees_total",
			Help: "Total rupees recorded across inserted donations",
		},
	)

	// ChangeEventsDispatched counts change notifications delivered to the hub.
	ChangeEventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandir_change_events_dispatched_total",
			Help: "Total number of donation change events dispatched",
		},
		[]string{"type"},
	)

	// InvalidChangePayloads counts notifications rejected at the boundary.
	InvalidChangePayloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandir_invalid_change_payloads_total",
			Help: "Total number of change notifications dropped as invalid",
		},
	)

	// ListenerReconnects tracks LISTEN connection events.
	ListenerReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandir_change_listener_events_total",
			Help: "Change listener connection events",
		},
		[]string{"event"},
	)

	// ProjectionResyncs counts full reloads of the live projections.
	ProjectionResyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mandir_projection_resyncs_total",
			Help: "Total number of full projection reloads",
		},
		[]string{"reason"},
	)

	// LiveWatchers tracks connected live-stream clients.
	LiveWatchers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mandir_live_watchers",
			Help: "Number of connected live update streams",
		},
	)

	// LiveEventsDropped counts events not delivered to slow watchers.
	LiveEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mandir_live_events_dropped_total",
			Help: "Total number of live events dropped for slow watchers",
		},
	)
)

// RecordDonation increments donation metrics for a newly inserted row.
func RecordDonation(source string, amount int64) {
	DonationsRecorded.WithLabelValues(source).Inc()
	DonationAmountRecorded.Add(float64(amount))
}
