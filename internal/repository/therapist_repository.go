package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TherapistRepository struct {
	pool *pgxpool.Pool
}

func NewTherapistRepository(pool *pgxpool.Pool) *TherapistRepository {
	return &TherapistRepository{pool: pool}
}

// GetByID returns nil, nil for an unknown id.
func (r *TherapistRepository) GetByID(ctx context.Context, id int64) (*model.Therapist, error) {
	query := `
		SELECT id, name, active
		FROM therapists
		WHERE id = $1
	`

	var t model.Therapist
	err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get therapist by id: %w", err)
	}

	return &t, nil
}

// ListActive returns active therapists ordered by name.
func (r *TherapistRepository) ListActive(ctx context.Context) ([]*model.Therapist, error) {
	query := `
		SELECT id, name, active
		FROM therapists
		WHERE active
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}

	return collectTherapists(rows)
}

// ListWithOpenSlot returns therapists having an open slot that exactly
// matches the date and times.
func (r *TherapistRepository) ListWithOpenSlot(ctx context.Context, date, start, end string) ([]*model.Therapist, error) {
	query := `
		SELECT DISTINCT t.id, t.name, t.active
		FROM therapists t
		INNER JOIN availability_slots s ON s.therapist_id = t.id
		WHERE s.slot_date = $1::date
		  AND s.start_time = $2::time
		  AND s.end_time = $3::time
		  AND s.available
		ORDER BY t.name, t.id
	`

	rows, err := r.pool.Query(ctx, query, date, start, end)
	if err != nil {
		return nil, fmt.Errorf("list therapists for slot: %w", err)
	}

	return collectTherapists(rows)
}

func collectTherapists(rows pgx.Rows) ([]*model.Therapist, error) {
	defer rows.Close()

	therapists := []*model.Therapist{}
	for rows.Next() {
		var t model.Therapist
		if err := rows.Scan(&t.ID, &t.Name, &t.Active); err != nil {
			return nil, fmt.Errorf("scan therapist: %w", err)
		}
		therapists = append(therapists, &t)
	}

	return therapists, rows.Err()
}
