// Package metrics holds the Prometheus collectors of the booking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes.
const (
	OutcomeBooked   = "booked"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	SlotsSeeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_slots_seeded_total",
			Help: "Slots created through the admin endpoint",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_notifications_sent_total",
			Help: "Notification sends by recipient kind and status",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clinic_notification_queue_depth",
			Help: "Jobs waiting in the in-memory notification queue",
		},
	)

	NotificationsRequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_notifications_requeued_total",
			Help: "Reservations re-enqueued by the sweeper",
		},
	)

	DuplicateJobsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_notification_duplicates_dropped_total",
			Help: "Confirmation jobs dropped because another copy owned the reservation",
		},
	)
)

// RecordBooking counts a booking attempt.
func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

// RecordNotification counts a single send.
func RecordNotification(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	NotificationsSent.WithLabelValues(kind, status).Inc()
}
