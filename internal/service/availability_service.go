package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"go.uber.org/zap"
)

// SlotStore is the slot table.
type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetOpenByDate(ctx context.Context, date string) ([]*model.Slot, error)
	ListAll(ctx context.Context) ([]*model.Slot, error)
}

// SlotInput is an admin request to open a new slot.
type SlotInput struct {
	TherapistID int64  `json:"therapist_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type AvailabilityService struct {
	slots     SlotStore
	directory *TherapistDirectory
	logger    *zap.Logger
}

func NewAvailabilityService(slots SlotStore, directory *TherapistDirectory, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		slots:     slots,
		directory: directory,
		logger:    logger,
	}
}

// AvailableSlots returns the open slots of a date ordered by start time.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, date string) ([]*model.Slot, error) {
	date = strings.TrimSpace(date)

	verr := &ValidationError{}
	checkDate(verr, "date", date)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	slots, err := s.slots.GetOpenByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("get open slots: %w", err)
	}
	return slots, nil
}

// TherapistsFor returns therapists with an open slot exactly matching the
// date and times.
func (s *AvailabilityService) TherapistsFor(ctx context.Context, date, start, end string) ([]*model.Therapist, error) {
	date = strings.TrimSpace(date)

	verr := &ValidationError{}
	checkDate(verr, "date", date)
	start = checkClock(verr, "hora_inicio", start)
	end = checkClock(verr, "hora_fin", end)
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	therapists, err := s.directory.ForSlot(ctx, date, start, end)
	if err != nil {
		return nil, fmt.Errorf("get therapists for slot: %w", err)
	}
	return therapists, nil
}

// SeedSlot opens a new slot for a therapist.
func (s *AvailabilityService) SeedSlot(ctx context.Context, in SlotInput) (*model.Slot, error) {
	verr := &ValidationError{}
	if in.TherapistID <= 0 {
		verr.add("therapist_id", "es obligatorio")
	}
	date := strings.TrimSpace(in.Date)
	checkDate(verr, "date", date)
	start := checkClock(verr, "start_time", in.StartTime)
	end := checkClock(verr, "end_time", in.EndTime)
	if start != "" && end != "" && end <= start {
		verr.add("end_time", "debe ser posterior a start_time")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	slot := &model.Slot{
		TherapistID: in.TherapistID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrSlotExists
		case errors.Is(err, repository.ErrUnknownTherapist):
			return nil, ErrUnknownTherapist
		case errors.Is(err, repository.ErrInvalidRange):
			return nil, &ValidationError{Fields: []FieldError{{Field: "end_time", Message: "debe ser posterior a start_time"}}}
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}

	metrics.SlotsSeeded.Inc()
	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("therapist_id", slot.TherapistID),
		zap.String("date", slot.Date),
		zap.String("start", slot.StartTime),
		zap.String("end", slot.EndTime),
	)

	return slot, nil
}

// ListSlots returns every slot for the admin panel.
func (s *AvailabilityService) ListSlots(ctx context.Context) ([]*model.Slot, error) {
	return s.slots.ListAll(ctx)
}

// ListTherapists returns active therapists for the admin panel.
func (s *AvailabilityService) ListTherapists(ctx context.Context) ([]*model.Therapist, error) {
	return s.directory.List(ctx)
}

func checkDate(verr *ValidationError, field, date string) {
	if date == "" {
		verr.add(field, "es obligatorio")
		return
	}
	if _, err := ParseDate(date); err != nil {
		verr.add(field, "formato esperado YYYY-MM-DD")
	}
}

// checkClock returns the normalized time, or "" if it was rejected.
func checkClock(verr *ValidationError, field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		verr.add(field, "es obligatorio")
		return ""
	}
	clock, err := NormalizeClock(value)
	if err != nil {
		verr.add(field, "formato esperado HH:MM o HH:MM:SS")
		return ""
	}
	return clock
}
