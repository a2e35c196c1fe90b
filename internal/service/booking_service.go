package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/notify"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/Freeeeeet/clinic_booking/internal/service")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// WarningNotQueued is returned to the client when the booking was committed
// but the confirmation could not be scheduled.
const WarningNotQueued = "La reserva fue registrada, pero no se pudo programar el correo de confirmación."

// ReservationStore claims slots and records reservations atomically.
type ReservationStore interface {
	Reserve(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	SetNotificationStatus(ctx context.Context, id string, status model.NotificationStatus) error
}

// Publisher accepts notification jobs.
type Publisher interface {
	Publish(ctx context.Context, job notify.Job) error
}

// BookingRequest is the customer input of a booking.
type BookingRequest struct {
	TherapistID *int64
	Name        string
	Email       string
	Phone       string
	Date        string
	StartTime   string
	EndTime     string
	Location    string
	Notes       string
}

// BookingResult is a committed booking. Warning is set when the reservation
// exists but its confirmation was not queued.
type BookingResult struct {
	Reservation        *model.Reservation
	Timing             Timing
	NotificationQueued bool
	Warning            string
}

type BookingService struct {
	reservations ReservationStore
	directory    *TherapistDirectory
	queue        Publisher
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

type BookingOption func(*BookingService)

// WithClock overrides the clock used to reject bookings in the past.
func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

// WithLocation sets the clinic time zone. Defaults to UTC.
func WithLocation(loc *time.Location) BookingOption {
	return func(s *BookingService) { s.loc = loc }
}

func NewBookingService(
	reservations ReservationStore,
	directory *TherapistDirectory,
	queue Publisher,
	logger *zap.Logger,
	opts ...BookingOption,
) *BookingService {
	s := &BookingService{
		reservations: reservations,
		directory:    directory,
		queue:        queue,
		loc:          time.UTC,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book validates the request, claims the slot and records the reservation in
// one transaction, then schedules the confirmation messages.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	ctx, span := tracer.Start(ctx, "service.Book")
	defer span.End()

	req, timing, err := s.validate(req)
	if err != nil {
		metrics.RecordBooking(metrics.OutcomeInvalid)
		return nil, err
	}

	res := &model.Reservation{
		ID:          uuid.NewString(),
		TherapistID: req.TherapistID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Notes:       req.Notes,
	}
	span.SetAttributes(
		attribute.String("reservation.id", res.ID),
		attribute.String("slot.date", res.Date),
		attribute.String("slot.start", res.StartTime),
	)

	if err := s.reservations.Reserve(ctx, res); err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			metrics.RecordBooking(metrics.OutcomeConflict)
			s.logger.Info("Slot already taken",
				zap.String("date", res.Date),
				zap.String("start", res.StartTime),
				zap.String("end", res.EndTime),
			)
			return nil, ErrSlotTaken
		}
		metrics.RecordBooking(metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve failed")
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	metrics.RecordBooking(metrics.OutcomeBooked)
	s.logger.Info("Slot booked",
		zap.String("reservation_id", res.ID),
		zap.Int64("slot_id", res.SlotID),
		zap.String("date", res.Date),
		zap.String("start", res.StartTime),
		zap.String("end", res.EndTime),
		zap.Int("minutes", timing.Minutes),
	)

	result := &BookingResult{
		Reservation:        res,
		Timing:             timing,
		NotificationQueued: true,
	}

	if err := s.enqueue(ctx, res, timing, 0); err != nil {
		s.logger.Warn("Failed to queue confirmation",
			zap.String("reservation_id", res.ID),
			zap.Error(err),
		)
		result.NotificationQueued = false
		result.Warning = WarningNotQueued
		s.markUnqueued(ctx, res)
	}

	return result, nil
}

// Requeue schedules the confirmation of an existing reservation again.
func (s *BookingService) Requeue(ctx context.Context, res *model.Reservation) error {
	timing, err := ComputeTiming(res.Date, res.StartTime, res.EndTime, s.loc)
	if err != nil {
		return fmt.Errorf("compute timing: %w", err)
	}
	return s.enqueue(ctx, res, timing, res.NotificationAttempts)
}

// GetReservation returns ErrNotFound for unknown or malformed ids.
func (s *BookingService) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return res, nil
}

// markUnqueued flags the reservation as failed so the sweeper retries it
// after its interval instead of waiting for the delivery lease.
func (s *BookingService) markUnqueued(ctx context.Context, res *model.Reservation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.reservations.SetNotificationStatus(ctx, res.ID, model.NotificationFailed); err != nil {
		s.logger.Error("Failed to flag unqueued confirmation",
			zap.String("reservation_id", res.ID),
			zap.Error(err),
		)
		return
	}
	res.NotificationStatus = model.NotificationFailed
	res.NotificationAttempts++
}

func (s *BookingService) enqueue(ctx context.Context, res *model.Reservation, timing Timing, attempt int) error {
	if s.queue == nil {
		return errors.New("notification queue is not configured")
	}

	var therapist string
	if res.TherapistID != nil && s.directory != nil {
		name, err := s.directory.Name(ctx, *res.TherapistID)
		if err != nil {
			// the label is cosmetic; send without it
			s.logger.Warn("Failed to resolve therapist name",
				zap.Int64("therapist_id", *res.TherapistID),
				zap.Error(err),
			)
		}
		therapist = name
	}

	job := notify.Job{
		ReservationID:   res.ID,
		CustomerName:    res.Name,
		CustomerEmail:   res.Email,
		CustomerPhone:   res.Phone,
		TherapistName:   therapist,
		Date:            res.Date,
		StartTime:       res.StartTime,
		EndTime:         res.EndTime,
		StartsAt:        timing.StartsAt,
		DurationMinutes: timing.Minutes,
		WhenText:        timing.WhenText,
		Location:        res.Location,
		Notes:           res.Notes,
		Attempt:         attempt,
	}

	if err := s.queue.Publish(ctx, job); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// validate trims the request and checks every field. The returned request
// carries normalized times.
func (s *BookingService) validate(req BookingRequest) (BookingRequest, Timing, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Date = strings.TrimSpace(req.Date)
	req.Location = strings.TrimSpace(req.Location)
	req.Notes = strings.TrimSpace(req.Notes)

	verr := &ValidationError{}

	if req.Name == "" {
		verr.add("nombre", "es obligatorio")
	}
	switch {
	case req.Email == "":
		verr.add("email", "es obligatorio")
	case !emailPattern.MatchString(req.Email):
		verr.add("email", "email no válido")
	}
	if req.TherapistID != nil && *req.TherapistID <= 0 {
		verr.add("therapist_id", "no válido")
	}

	checkDate(verr, "fecha", req.Date)
	req.StartTime = checkClock(verr, "hora_inicio", req.StartTime)
	req.EndTime = checkClock(verr, "hora_fin", req.EndTime)
	if req.StartTime != "" && req.EndTime != "" && req.EndTime <= req.StartTime {
		verr.add("hora_fin", "debe ser posterior a hora_inicio")
	}

	if err := verr.orNil(); err != nil {
		return req, Timing{}, err
	}

	timing, err := ComputeTiming(req.Date, req.StartTime, req.EndTime, s.loc)
	if err != nil {
		verr.add("fecha", err.Error())
		return req, Timing{}, verr
	}
	if timing.StartsAt.Before(s.now()) {
		verr.add("fecha", "la fecha ya pasó")
		return req, Timing{}, verr
	}

	return req, timing, nil
}
