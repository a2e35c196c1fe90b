package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func seed(t *testing.T, f *fixture, therapistID int64, date, start, end string) *model.Slot {
	t.Helper()
	slot, err := f.availability.SeedSlot(context.Background(), SlotInput{
		TherapistID: therapistID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
	})
	require.NoError(t, err)
	return slot
}

func anaRequest() BookingRequest {
	return BookingRequest{
		Name:      "Ana",
		Email:     "ana@example.com",
		Date:      "2025-09-23",
		StartTime: "12:00:00",
		EndTime:   "13:00:00",
	}
}

func TestBookingEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")

	slots, err := f.availability.AvailableSlots(ctx, "2025-09-23")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "12:00:00", slots[0].StartTime)
	assert.Equal(t, "13:00:00", slots[0].EndTime)

	result, err := f.booking.Book(ctx, anaRequest())
	require.NoError(t, err)
	require.NotEmpty(t, result.Reservation.ID)
	assert.Equal(t, slots[0].ID, result.Reservation.SlotID)
	assert.Equal(t, int64(1), *result.Reservation.TherapistID)
	assert.Equal(t, model.NotificationPending, result.Reservation.NotificationStatus)
	assert.True(t, result.NotificationQueued)
	assert.Empty(t, result.Warning)

	_, err = f.booking.Book(ctx, anaRequest())
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Equal(t, 1, f.store.reservationCount())

	slots, err = f.availability.AvailableSlots(ctx, "2025-09-23")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestBookQueuesConfirmation(t *testing.T) {
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:00", "13:00")

	req := anaRequest()
	req.StartTime = "12:00"
	req.EndTime = "13:00"
	req.Location = "  Consulta 2 "

	result, err := f.booking.Book(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, result.Reservation.ID, job.ReservationID)
	assert.Equal(t, "Paula Rojas", job.TherapistName)
	assert.Equal(t, "12:00:00", job.StartTime)
	assert.Equal(t, "Consulta 2", job.Location)
	assert.Equal(t, 60, job.DurationMinutes)
	assert.Equal(t, "martes, 23 de septiembre de 2025, 12:00", job.WhenText)
	assert.True(t, job.StartsAt.Equal(time.Date(2025, 9, 23, 15, 0, 0, 0, time.UTC)))
}

func TestBookRejectsMalformedEmail(t *testing.T) {
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")

	req := anaRequest()
	req.Email = "not-an-email"

	_, err := f.booking.Book(context.Background(), req)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("email"))
	assert.Equal(t, 0, f.store.reservationCount())
	assert.Empty(t, f.queue.jobs)

	slots, err := f.availability.AvailableSlots(context.Background(), "2025-09-23")
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestBookValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BookingRequest)
		field  string
	}{
		{"missing name", func(r *BookingRequest) { r.Name = "   " }, "nombre"},
		{"missing email", func(r *BookingRequest) { r.Email = "" }, "email"},
		{"bad date", func(r *BookingRequest) { r.Date = "23/09/2025" }, "fecha"},
		{"bad start", func(r *BookingRequest) { r.StartTime = "noon" }, "hora_inicio"},
		{"end before start", func(r *BookingRequest) { r.EndTime = "11:00:00" }, "hora_fin"},
		{"in the past", func(r *BookingRequest) { r.Date = "2025-08-01" }, "fecha"},
		{"bad therapist", func(r *BookingRequest) { r.TherapistID = int64Ptr(0) }, "therapist_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := anaRequest()
			tt.mutate(&req)

			_, err := f.booking.Book(context.Background(), req)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.True(t, verr.Has(tt.field), "fields: %+v", verr.Fields)
		})
	}
}

func TestConcurrentBookingOneWins(t *testing.T) {
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.booking.Book(context.Background(), anaRequest())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.store.reservationCount())
}

func TestBookScopedToTherapist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")
	other := seed(t, f, 2, "2025-09-23", "12:00:00", "13:00:00")

	req := anaRequest()
	req.TherapistID = int64Ptr(2)
	result, err := f.booking.Book(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, other.ID, result.Reservation.SlotID)

	therapists, err := f.availability.TherapistsFor(ctx, "2025-09-23", "12:00", "13:00")
	require.NoError(t, err)
	require.Len(t, therapists, 1)
	assert.Equal(t, "Paula Rojas", therapists[0].Name)
}

func TestBookWithoutTherapistClaimsAllMatching(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")
	seed(t, f, 2, "2025-09-23", "12:00:00", "13:00:00")

	result, err := f.booking.Book(ctx, anaRequest())
	require.NoError(t, err)
	assert.Equal(t, first.ID, result.Reservation.SlotID)

	slots, err := f.availability.AvailableSlots(ctx, "2025-09-23")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestBookSucceedsWhenQueueFails(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errBrokerDown
	seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")

	result, err := f.booking.Book(context.Background(), anaRequest())
	require.NoError(t, err)
	assert.False(t, result.NotificationQueued)
	assert.Equal(t, WarningNotQueued, result.Warning)
	assert.Equal(t, 1, f.store.reservationCount())

	// picked up by the sweeper on its next pass
	stored, err := f.booking.GetReservation(context.Background(), result.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationFailed, stored.NotificationStatus)
	assert.Equal(t, 1, stored.NotificationAttempts)
}

func TestSameCustomerMayBookSeveralSlots(t *testing.T) {
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")
	seed(t, f, 1, "2025-09-23", "14:00:00", "15:00:00")

	_, err := f.booking.Book(context.Background(), anaRequest())
	require.NoError(t, err)

	req := anaRequest()
	req.StartTime, req.EndTime = "14:00:00", "15:00:00"
	_, err = f.booking.Book(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, f.store.reservationCount())
}

func TestGetReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:00:00", "13:00:00")

	result, err := f.booking.Book(ctx, anaRequest())
	require.NoError(t, err)

	res, err := f.booking.GetReservation(ctx, result.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", res.Name)

	_, err = f.booking.GetReservation(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.booking.GetReservation(ctx, "6f1c1f7e-3f5d-4c55-9a55-5a1b5f1e2d3c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequeueCarriesAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed(t, f, 1, "2025-09-23", "12:41:00", "15:45:00")

	req := anaRequest()
	req.StartTime, req.EndTime = "12:41:00", "15:45:00"
	result, err := f.booking.Book(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 184, result.Timing.Minutes)

	result.Reservation.NotificationAttempts = 2
	require.NoError(t, f.booking.Requeue(ctx, result.Reservation))
	require.Len(t, f.queue.jobs, 2)
	assert.Equal(t, 2, f.queue.jobs[1].Attempt)
	assert.Equal(t, 184, f.queue.jobs[1].DurationMinutes)
}
