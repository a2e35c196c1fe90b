package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/service"
)

// AvailabilityService is the read path and admin slot management.
type AvailabilityService interface {
	AvailableSlots(ctx context.Context, date string) ([]*model.Slot, error)
	TherapistsFor(ctx context.Context, date, start, end string) ([]*model.Therapist, error)
	SeedSlot(ctx context.Context, in service.SlotInput) (*model.Slot, error)
	ListSlots(ctx context.Context) ([]*model.Slot, error)
	ListTherapists(ctx context.Context) ([]*model.Therapist, error)
}

// BookingService is the write path.
type BookingService interface {
	Book(ctx context.Context, req service.BookingRequest) (*service.BookingResult, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
}

// Pinger checks the database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// slotView is the public shape of an open slot.
type slotView struct {
	ID          int64  `json:"id"`
	TherapistID int64  `json:"therapist_id"`
	StartTime   string `json:"hora_inicio"`
	EndTime     string `json:"hora_fin"`
}

// bookingInput is the booking form payload.
type bookingInput struct {
	Name        string     `json:"nombre"`
	Email       string     `json:"email"`
	Phone       string     `json:"telefono"`
	Date        string     `json:"fecha"`
	StartTime   string     `json:"hora_inicio"`
	EndTime     string     `json:"hora_fin"`
	TherapistID optionalID `json:"therapist_id"`
	Location    string     `json:"ubicacion"`
	Notes       string     `json:"notas"`
}

// optionalID accepts a JSON number or a numeric string, as form selects send
// ids as strings. null and "" mean not given; anything else that is not an
// integer sets Invalid.
type optionalID struct {
	Value   *int64
	Invalid bool
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Value, o.Invalid = nil, false

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		o.Invalid = true
		return nil
	}
	o.Value = &id
	return nil
}

type bookingResponse struct {
	OK           bool                     `json:"ok"`
	ID           string                   `json:"id"`
	Confirmation model.NotificationStatus `json:"confirmation"`
	Warning      string                   `json:"warning,omitempty"`
}
