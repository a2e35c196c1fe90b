package model

import "time"

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending" // waiting for the worker
	NotificationSending NotificationStatus = "sending" // a worker owns the job
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed" // picked up again by the sweeper
)

// DeliveryLeg is one of the messages sent for a reservation.
type DeliveryLeg string

const (
	LegOperator DeliveryLeg = "operator"
	LegCustomer DeliveryLeg = "customer"
)

// DeliveryProgress says which legs already went out.
type DeliveryProgress struct {
	OperatorSent bool
	CustomerSent bool
}

func (p DeliveryProgress) Sent(leg DeliveryLeg) bool {
	switch leg {
	case LegOperator:
		return p.OperatorSent
	case LegCustomer:
		return p.CustomerSent
	}
	return false
}

// Reservation is a customer's claim on a slot. Immutable after creation
// except for NotificationStatus.
type Reservation struct {
	ID                   string             `json:"id"`
	SlotID               int64              `json:"slot_id"`
	TherapistID          *int64             `json:"therapist_id,omitempty"`
	Name                 string             `json:"nombre"`
	Email                string             `json:"email"`
	Phone                string             `json:"telefono"`
	Date                 string             `json:"fecha"`
	StartTime            string             `json:"hora_inicio"`
	EndTime              string             `json:"hora_fin"`
	Location             string             `json:"ubicacion,omitempty"`
	Notes                string             `json:"notas,omitempty"`
	NotificationStatus   NotificationStatus `json:"confirmation"`
	NotificationAttempts int                `json:"-"`
	OperatorSentAt       *time.Time         `json:"-"`
	CustomerSentAt       *time.Time         `json:"-"`
	CreatedAt            time.Time          `json:"created_at"`
}

// Progress reports the legs recorded as sent.
func (r *Reservation) Progress() DeliveryProgress {
	return DeliveryProgress{
		OperatorSent: r.OperatorSentAt != nil,
		CustomerSent: r.CustomerSentAt != nil,
	}
}

// Key returns the slot triple the reservation was made against.
func (r *Reservation) Key() SlotKey {
	return SlotKey{
		TherapistID: r.TherapistID,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}
