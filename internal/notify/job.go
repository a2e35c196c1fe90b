package notify

import (
	"context"
	"time"
)

// RoutingKeyBookingCreated is the broker routing key for confirmation jobs.
const RoutingKeyBookingCreated = "booking.created"

// Job carries everything needed to send the confirmation messages for one
// reservation without reading the database again.
type Job struct {
	ReservationID   string    `json:"reservation_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	CustomerPhone   string    `json:"customer_phone,omitempty"`
	TherapistName   string    `json:"therapist_name,omitempty"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	WhenText        string    `json:"when_text"`
	Location        string    `json:"location,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Attempt         int       `json:"attempt"`
}

// EndsAt is StartsAt plus the duration.
func (j Job) EndsAt() time.Time {
	return j.StartsAt.Add(time.Duration(j.DurationMinutes) * time.Minute)
}

// Handler processes a job taken off a queue.
type Handler func(ctx context.Context, job Job)

// Queue decouples the booking response from message delivery.
type Queue interface {
	Publish(ctx context.Context, job Job) error
	Start(ctx context.Context) error
	Stop() error
}
