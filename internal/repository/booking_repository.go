package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// BookingRepo persists bookings.
type BookingRepo struct{ DB *sql.DB }

// NewBookingRepo returns a BookingRepo over db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingSelect = `
	SELECT b.id, b.tour_id, b.user_id, b.price, b.payment_intent, b.checkout_session_id,
	       b.refund, b.status, b.created_at, t.name
	FROM bookings b
	JOIN tours t ON t.id = b.tour_id`

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.TourID, &b.UserID, &b.Price, &b.PaymentIntent, &b.CheckoutSessionID,
		&b.Refund, &status, &b.CreatedAt, &b.TourName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

// Create inserts a pending booking.
func (r *BookingRepo) Create(ctx context.Context, b model.Booking) (model.Booking, error) {
	status := b.Status
	if status == "" {
		status = model.BookingPending
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO bookings (tour_id, user_id, price, payment_intent, checkout_session_id, status) VALUES (?,?,?,?,?,?)",
		b.TourID, b.UserID, b.Price, b.PaymentIntent, b.CheckoutSessionID, string(status))
	if err != nil {
		return model.Booking{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Booking{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches one booking with its tour name.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return scanBooking(r.DB.QueryRowContext(ctx, bookingSelect+" WHERE b.id=? LIMIT 1", id))
}

// GetBySession fetches the booking created for a checkout session.
func (r *BookingRepo) GetBySession(ctx context.Context, sessionID string) (model.Booking, error) {
	return scanBooking(r.DB.QueryRowContext(ctx, bookingSelect+" WHERE b.checkout_session_id=? LIMIT 1", sessionID))
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx, bookingSelect+" WHERE b.user_id=? ORDER BY b.id DESC", userID)
}

// List returns every booking, newest first.
func (r *BookingRepo) List(ctx context.Context, page, limit int) ([]model.Booking, error) {
	l, off := pageBounds(page, limit)
	return r.list(ctx, bookingSelect+" ORDER BY b.id DESC LIMIT ? OFFSET ?", l, off)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking to next, locking the row so concurrent
// transitions serialize.  Disallowed transitions return ErrConflict.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, next model.BookingStatus, refund string) (model.Booking, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var cur string
	if err := tx.QueryRowContext(ctx, "SELECT status FROM bookings WHERE id=? FOR UPDATE", id).Scan(&cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	if !model.BookingStatus(cur).CanTransition(next) {
		return model.Booking{}, fmt.Errorf("%w: booking %d is %s", ErrConflict, id, cur)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE bookings SET status=?, refund=? WHERE id=?", string(next), refund, id); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, err
	}
	return r.GetByID(ctx, id)
}
