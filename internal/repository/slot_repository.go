package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `
	id,
	therapist_id,
	to_char(slot_date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI:SS'),
	to_char(end_time, 'HH24:MI:SS'),
	available,
	created_at`

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// Create inserts a new open slot. A slot with the same therapist, date and
// times returns ErrDuplicate.
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO availability_slots (therapist_id, slot_date, start_time, end_time, available)
		VALUES ($1, $2::date, $3::time, $4::time, TRUE)
		RETURNING id, available, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.TherapistID,
		slot.Date,
		slot.StartTime,
		slot.EndTime,
	).Scan(&slot.ID, &slot.Available, &slot.CreatedAt)

	if err != nil {
		switch {
		case base.IsUniqueViolation(err):
			return ErrDuplicate
		case base.IsForeignKeyViolation(err):
			return ErrUnknownTherapist
		case base.IsCheckViolation(err):
			return ErrInvalidRange
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetOpenByDate returns open slots for a date ordered by start time.
func (r *SlotRepository) GetOpenByDate(ctx context.Context, date string) ([]*model.Slot, error) {
	query := `SELECT` + slotColumns + `
		FROM availability_slots
		WHERE slot_date = $1::date
		  AND available
		ORDER BY start_time, therapist_id, id
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("get open slots: %w", err)
	}

	return collectSlots(rows)
}

// ListAll returns every slot, open or not, for the admin panel.
func (r *SlotRepository) ListAll(ctx context.Context) ([]*model.Slot, error) {
	query := `SELECT` + slotColumns + `
		FROM availability_slots
		ORDER BY slot_date, start_time, therapist_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	return collectSlots(rows)
}

// claimedSlot is a row closed by claim.
type claimedSlot struct {
	ID          int64
	TherapistID int64
}

// claim closes every open slot matching key and returns the rows it closed.
// The WHERE available predicate makes concurrent claims of the same slot
// serialize on the row lock: only one of them sees the row as open.
func claim(ctx context.Context, q base.Querier, key model.SlotKey) ([]claimedSlot, error) {
	query := `
		UPDATE availability_slots
		SET available = FALSE
		WHERE slot_date = $1::date
		  AND start_time = $2::time
		  AND end_time = $3::time
		  AND ($4::bigint IS NULL OR therapist_id = $4)
		  AND available
		RETURNING id, therapist_id
	`

	rows, err := q.Query(ctx, query, key.Date, key.StartTime, key.EndTime, key.TherapistID)
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}
	defer rows.Close()

	var claimed []claimedSlot
	for rows.Next() {
		var c claimedSlot
		if err := rows.Scan(&c.ID, &c.TherapistID); err != nil {
			return nil, fmt.Errorf("scan claimed slot: %w", err)
		}
		claimed = append(claimed, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}

	return claimed, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	slots := []*model.Slot{}
	for rows.Next() {
		var slot model.Slot
		err := rows.Scan(
			&slot.ID,
			&slot.TherapistID,
			&slot.Date,
			&slot.StartTime,
			&slot.EndTime,
			&slot.Available,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, &slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}
