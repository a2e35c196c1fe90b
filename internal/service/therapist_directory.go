package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// TherapistStore is the read-only therapist table.
type TherapistStore interface {
	GetByID(ctx context.Context, id int64) (*model.Therapist, error)
	ListActive(ctx context.Context) ([]*model.Therapist, error)
	ListWithOpenSlot(ctx context.Context, date, start, end string) ([]*model.Therapist, error)
}

// TherapistDirectory resolves therapist names for notifications. Names are
// cached; slot and reservation state never is.
type TherapistDirectory struct {
	store  TherapistStore
	cache  *lru.Cache[int64, string]
	logger *zap.Logger
}

func NewTherapistDirectory(store TherapistStore, size int, logger *zap.Logger) (*TherapistDirectory, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[int64, string](size)
	if err != nil {
		return nil, fmt.Errorf("create therapist cache: %w", err)
	}
	return &TherapistDirectory{store: store, cache: cache, logger: logger}, nil
}

// Name returns the therapist's display name, or "" if the therapist does not
// exist.
func (d *TherapistDirectory) Name(ctx context.Context, id int64) (string, error) {
	if name, ok := d.cache.Get(id); ok {
		return name, nil
	}

	t, err := d.store.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get therapist: %w", err)
	}
	if t == nil {
		return "", nil
	}

	d.cache.Add(t.ID, t.Name)
	return t.Name, nil
}

// List returns active therapists ordered by name and refreshes the cache.
func (d *TherapistDirectory) List(ctx context.Context) ([]*model.Therapist, error) {
	therapists, err := d.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range therapists {
		d.cache.Add(t.ID, t.Name)
	}
	return therapists, nil
}

// ForSlot returns therapists with an open slot matching the triple exactly.
func (d *TherapistDirectory) ForSlot(ctx context.Context, date, start, end string) ([]*model.Therapist, error) {
	return d.store.ListWithOpenSlot(ctx, date, start, end)
}
