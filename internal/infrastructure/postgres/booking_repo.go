package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/example/meetsched/internal/db"
	"github.com/example/meetsched/internal/domain/scheduling"
)

type BookingRepo struct{ db *db.DB }

func NewBookingRepo(d *db.DB) *BookingRepo { return &BookingRepo{db: d} }

const bookingColumns = `id, meeting_type_id, owner_id, recipient_name, recipient_email, start_at, end_at, status, event_id, created_at`

func (r *BookingRepo) ByID(ctx context.Context, id string) (scheduling.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return scheduling.Booking{}, scheduling.ErrNoRecord
	}
	var b scheduling.Booking
	if err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id), &b); err != nil {
		return scheduling.Booking{}, notFound(err)
	}
	return b, nil
}

// Overlapping returns the owner's confirmed bookings intersecting [start, end).
func (r *BookingRepo) Overlapping(ctx context.Context, ownerID string, start, end time.Time) ([]scheduling.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE owner_id=$1 AND status='confirmed' AND start_at < $3 AND end_at > $2
		ORDER BY start_at
	`, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query overlapping bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListByOwner returns the owner's bookings starting at or after since, soonest first.
func (r *BookingRepo) ListByOwner(ctx context.Context, ownerID string, since time.Time, limit int) ([]scheduling.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE owner_id=$1 AND start_at >= $2
		ORDER BY start_at
		LIMIT $3
	`, ownerID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

// InsertConfirmed stores b as confirmed. The owner's advisory lock serializes
// writers across processes, and the bookings_no_overlap constraint rejects
// anything that slips past it.
func (r *BookingRepo) InsertConfirmed(ctx context.Context, b scheduling.Booking) (scheduling.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Status = scheduling.StatusConfirmed
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithTx(ctx, func(tx db.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.OwnerID); err != nil {
			return fmt.Errorf("owner lock: %w", err)
		}

		var taken string
		err := tx.QueryRow(ctx, `
			SELECT id FROM bookings
			WHERE owner_id=$1 AND status='confirmed' AND start_at < $3 AND end_at > $2
			LIMIT 1
		`, b.OwnerID, b.Start, b.End).Scan(&taken)
		switch {
		case err == nil:
			return scheduling.ErrOverlap
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("re-check overlap: %w", err)
		}

		_, err = tx.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			b.ID, b.MeetingTypeID, b.OwnerID, b.RecipientName, b.RecipientEmail,
			b.Start, b.End, string(b.Status), b.EventID, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if db.HasCode(err, db.CodeExclusionViolation) {
		return scheduling.Booking{}, fmt.Errorf("%w: %v", scheduling.ErrOverlap, err)
	}
	if err != nil {
		return scheduling.Booking{}, err
	}
	return b, nil
}

// SetStatus moves a booking to status with a single conditional UPDATE. A
// booking already in that status is left alone and reported as
// scheduling.ErrStatusUnchanged.
func (r *BookingRepo) SetStatus(ctx context.Context, id string, status scheduling.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid booking status %q", status)
	}
	if _, err := uuid.Parse(id); err != nil {
		return scheduling.ErrNoRecord
	}
	var got string
	err := r.db.QueryRow(ctx,
		`UPDATE bookings SET status=$2 WHERE id=$1 AND status<>$2 RETURNING id`,
		id, string(status)).Scan(&got)
	switch {
	case err == nil:
		return nil
	case db.HasCode(err, db.CodeExclusionViolation):
		return fmt.Errorf("%w: %v", scheduling.ErrOverlap, err)
	case !db.IsNotFound(err):
		return fmt.Errorf("set booking status: %w", err)
	}

	var current string
	if err := r.db.QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1`, id).Scan(&current); err != nil {
		return notFound(err)
	}
	return scheduling.ErrStatusUnchanged
}

func collectBookings(rows db.Rows) ([]scheduling.Booking, error) {
	defer rows.Close()
	out := []scheduling.Booking{}
	for rows.Next() {
		var b scheduling.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row db.Row, b *scheduling.Booking) error {
	var status string
	if err := row.Scan(&b.ID, &b.MeetingTypeID, &b.OwnerID, &b.RecipientName, &b.RecipientEmail,
		&b.Start, &b.End, &status, &b.EventID, &b.CreatedAt); err != nil {
		return err
	}
	b.Status = scheduling.Status(status)
	b.Start, b.End = b.Start.UTC(), b.End.UTC()
	return nil
}
