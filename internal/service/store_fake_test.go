package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/notify"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"go.uber.org/zap"
)

// memStore mirrors the Postgres repositories closely enough for service
// tests: Reserve claims under a lock, so exactly one of two concurrent
// claims sees a slot as open.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	slots        []*model.Slot
	therapists   map[int64]*model.Therapist
	reservations map[string]*model.Reservation
	lookups      int
}

func newMemStore(therapists ...*model.Therapist) *memStore {
	s := &memStore{
		therapists:   map[int64]*model.Therapist{},
		reservations: map[string]*model.Reservation{},
	}
	for _, t := range therapists {
		s.therapists[t.ID] = t
	}
	return s
}

func (s *memStore) Create(_ context.Context, slot *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.therapists[slot.TherapistID]; !ok {
		return repository.ErrUnknownTherapist
	}
	for _, existing := range s.slots {
		if existing.TherapistID == slot.TherapistID && existing.Date == slot.Date &&
			existing.StartTime == slot.StartTime && existing.EndTime == slot.EndTime {
			return repository.ErrDuplicate
		}
	}
	s.nextID++
	slot.ID = s.nextID
	slot.Available = true
	slot.CreatedAt = time.Now()
	cp := *slot
	s.slots = append(s.slots, &cp)
	return nil
}

func (s *memStore) GetOpenByDate(_ context.Context, date string) ([]*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*model.Slot{}
	for _, slot := range s.slots {
		if slot.Date == date && slot.Available {
			cp := *slot
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		if out[i].TherapistID != out[j].TherapistID {
			return out[i].TherapistID < out[j].TherapistID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) ListAll(_ context.Context) ([]*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		cp := *slot
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) Reserve(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := res.Key()
	var claimed []*model.Slot
	for _, slot := range s.slots {
		if !slot.Available || slot.Date != key.Date || slot.StartTime != key.StartTime || slot.EndTime != key.EndTime {
			continue
		}
		if key.TherapistID != nil && slot.TherapistID != *key.TherapistID {
			continue
		}
		claimed = append(claimed, slot)
	}
	if len(claimed) == 0 {
		return repository.ErrSlotUnavailable
	}

	first := claimed[0]
	for _, slot := range claimed {
		slot.Available = false
		if slot.ID < first.ID {
			first = slot
		}
	}
	res.SlotID = first.ID
	if res.TherapistID == nil {
		id := first.TherapistID
		res.TherapistID = &id
	}
	res.NotificationStatus = model.NotificationPending
	res.CreatedAt = time.Now()

	cp := *res
	s.reservations[res.ID] = &cp
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return nil, nil
	}
	cp := *res
	return &cp, nil
}

func (s *memStore) SetNotificationStatus(_ context.Context, id string, status model.NotificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return errors.New("reservation not found")
	}
	res.NotificationStatus = status
	if status != model.NotificationPending {
		res.NotificationAttempts++
	}
	return nil
}

func (s *memStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

// therapistStore exposes the therapist side of memStore; GetByID collides
// with the reservation lookup.
type therapistStore struct{ *memStore }

func (t therapistStore) GetByID(_ context.Context, id int64) (*model.Therapist, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lookups++
	th, ok := t.therapists[id]
	if !ok {
		return nil, nil
	}
	cp := *th
	return &cp, nil
}

func (t therapistStore) ListActive(_ context.Context) ([]*model.Therapist, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []*model.Therapist{}
	for _, th := range t.therapists {
		if th.Active {
			cp := *th
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t therapistStore) ListWithOpenSlot(_ context.Context, date, start, end string) ([]*model.Therapist, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := map[int64]bool{}
	out := []*model.Therapist{}
	for _, slot := range t.slots {
		if !slot.Available || slot.Date != date || slot.StartTime != start || slot.EndTime != end || seen[slot.TherapistID] {
			continue
		}
		seen[slot.TherapistID] = true
		if th, ok := t.therapists[slot.TherapistID]; ok {
			cp := *th
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []notify.Job
	err  error
}

func (q *fakeQueue) Publish(_ context.Context, job notify.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

var errBrokerDown = errors.New("broker down")

var clinicTZ = time.FixedZone("-03", -3*60*60)

type fixture struct {
	store        *memStore
	queue        *fakeQueue
	availability *AvailabilityService
	booking      *BookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore(
		&model.Therapist{ID: 1, Name: "Paula Rojas", Active: true},
		&model.Therapist{ID: 2, Name: "Andrés Soto", Active: true},
	)
	directory, err := NewTherapistDirectory(therapistStore{store}, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	queue := &fakeQueue{}
	now := func() time.Time { return time.Date(2025, 9, 1, 9, 0, 0, 0, clinicTZ) }

	return &fixture{
		store:        store,
		queue:        queue,
		availability: NewAvailabilityService(store, directory, zap.NewNop()),
		booking: NewBookingService(store, directory, queue, zap.NewNop(),
			WithClock(now),
			WithLocation(clinicTZ),
		),
	}
}
