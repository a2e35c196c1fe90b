package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/Freeeeeet/clinic_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationColumns = `
	id::text,
	slot_id,
	therapist_id,
	name,
	email,
	phone,
	to_char(slot_date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI:SS'),
	to_char(end_time, 'HH24:MI:SS'),
	location,
	notes,
	notification_status,
	notification_attempts,
	operator_sent_at,
	customer_sent_at,
	created_at`

type ReservationRepository struct {
	*base.Repository
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{Repository: base.NewRepository(pool)}
}

// Reserve claims the slot identified by the reservation's date/time triple
// and records the reservation in the same transaction. When several open
// slots match (no therapist given) all of them are closed and the
// reservation references the lowest id. If nothing was open, ErrSlotUnavailable
// is returned and nothing is written.
func (r *ReservationRepository) Reserve(ctx context.Context, res *model.Reservation) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		claimed, err := claim(ctx, tx, res.Key())
		if err != nil {
			return err
		}
		if len(claimed) == 0 {
			return ErrSlotUnavailable
		}

		first := claimed[0]
		for _, c := range claimed[1:] {
			if c.ID < first.ID {
				first = c
			}
		}
		res.SlotID = first.ID
		if res.TherapistID == nil {
			therapistID := first.TherapistID
			res.TherapistID = &therapistID
		}
		if res.NotificationStatus == "" {
			res.NotificationStatus = model.NotificationPending
		}

		query := `
			INSERT INTO reservations (
				id, slot_id, therapist_id, name, email, phone,
				slot_date, start_time, end_time, location, notes, notification_status
			)
			VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7::date, $8::time, $9::time, $10, $11, $12)
			RETURNING created_at
		`

		err = tx.QueryRow(
			ctx, query,
			res.ID,
			res.SlotID,
			res.TherapistID,
			res.Name,
			res.Email,
			res.Phone,
			res.Date,
			res.StartTime,
			res.EndTime,
			res.Location,
			res.Notes,
			res.NotificationStatus,
		).Scan(&res.CreatedAt)
		if err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		return nil
	})
}

// GetByID returns nil, nil when the reservation does not exist.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE id = $1::text::uuid
	`

	res, err := scanReservation(r.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}

	return res, nil
}

// SetNotificationStatus records the outcome of a delivery attempt.
func (r *ReservationRepository) SetNotificationStatus(ctx context.Context, id string, status model.NotificationStatus) error {
	query := `
		UPDATE reservations
		SET notification_status = $1::text,
		    notification_attempts = notification_attempts + CASE WHEN $1::text = 'pending' THEN 0 ELSE 1 END,
		    updated_at = NOW()
		WHERE id = $2::text::uuid
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reservation %s not found", id)
	}

	return nil
}

// BeginDelivery marks a pending reservation as being sent by the job for the
// given attempt and returns the legs already delivered. ok is false when the
// row is owned by another copy of the job, was already delivered or the
// attempt is outdated; the caller must drop the job then.
func (r *ReservationRepository) BeginDelivery(ctx context.Context, id string, attempt int) (model.DeliveryProgress, bool, error) {
	query := `
		UPDATE reservations
		SET notification_status = 'sending',
		    updated_at = NOW()
		WHERE id = $1::text::uuid
		  AND notification_status = 'pending'
		  AND notification_attempts = $2
		RETURNING operator_sent_at IS NOT NULL, customer_sent_at IS NOT NULL
	`

	var progress model.DeliveryProgress
	err := r.Pool().QueryRow(ctx, query, id, attempt).Scan(&progress.OperatorSent, &progress.CustomerSent)
	if err != nil {
		if base.IsNotFound(err) {
			return model.DeliveryProgress{}, false, nil
		}
		return model.DeliveryProgress{}, false, fmt.Errorf("begin delivery: %w", err)
	}

	return progress, true, nil
}

// MarkLegSent records that one message of the reservation went out. It also
// extends the lease of the running delivery.
func (r *ReservationRepository) MarkLegSent(ctx context.Context, id string, leg model.DeliveryLeg) error {
	var query string
	switch leg {
	case model.LegOperator:
		query = `
			UPDATE reservations
			SET operator_sent_at = COALESCE(operator_sent_at, NOW()),
			    updated_at = NOW()
			WHERE id = $1::text::uuid
		`
	case model.LegCustomer:
		query = `
			UPDATE reservations
			SET customer_sent_at = COALESCE(customer_sent_at, NOW()),
			    updated_at = NOW()
			WHERE id = $1::text::uuid
		`
	default:
		return fmt.Errorf("unknown delivery leg %q", leg)
	}

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark %s sent: %w", leg, err)
	}
	if affected == 0 {
		return fmt.Errorf("reservation %s not found", id)
	}

	return nil
}

// ClaimUndelivered resets a batch of undelivered reservations to pending and
// returns them, oldest first. Failed rows qualify once last touched before
// failedBefore; pending and sending rows only before leaseBefore, so jobs
// still queued or in flight are left alone. Rows locked by a concurrent
// sweep are skipped.
func (r *ReservationRepository) ClaimUndelivered(ctx context.Context, failedBefore, leaseBefore time.Time, maxAttempts, limit int) ([]*model.Reservation, error) {
	query := `
		WITH stale AS (
			SELECT id
			FROM reservations
			WHERE notification_attempts < $3
			  AND (
			        (notification_status = 'failed' AND updated_at < $1)
			     OR (notification_status IN ('pending', 'sending') AND updated_at < $2)
			  )
			ORDER BY updated_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		UPDATE reservations
		SET notification_status = 'pending',
		    updated_at = NOW()
		WHERE id IN (SELECT id FROM stale)
		RETURNING` + reservationColumns

	rows, err := r.Pool().Query(ctx, query, failedBefore, leaseBefore, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("claim undelivered reservations: %w", err)
	}
	defer rows.Close()

	var out []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim undelivered reservations: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID,
		&res.SlotID,
		&res.TherapistID,
		&res.Name,
		&res.Email,
		&res.Phone,
		&res.Date,
		&res.StartTime,
		&res.EndTime,
		&res.Location,
		&res.Notes,
		&res.NotificationStatus,
		&res.NotificationAttempts,
		&res.OperatorSentAt,
		&res.CustomerSentAt,
		&res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

