package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `
	id, booking_code, property_id, room_id, check_in_date, check_out_date, guest_count,
	guest_first_name, guest_last_name, guest_email, guest_phone, guest_country, special_requests,
	status, nights, price_per_night, subtotal, discount_tier, discount_percent, discount_amount,
	cleaning_fee, total_amount, currency, deposit_percent, deposit_amount,
	expires_at, cancelled_at, created_at, updated_at`

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db, now: time.Now}
}

// Reserve inserts a booking for roomID inside one transaction.
//
// ─────────────────────────────────────────────────────────────────────────────
// OVERLAPPING STAYS
// ─────────────────────────────────────────────────────────────────────────────
//
// Two guests checking availability and then inserting would both see the
// nights free and both insert:
//
//	tx A: no booking overlaps 10–14 → INSERT 10–14
//	tx B: no booking overlaps 12–15 → INSERT 12–15
//	Result: nights 12 and 13 sold twice.
//
// The bookings table carries an exclusion constraint over
// (room_id, daterange(check_in_date, check_out_date, '[)')) for every
// occupying status, so the second insert fails with SQLSTATE 23P01 no matter
// how the transactions interleave. That error is reported as
// apperror.ErrDatesUnavailable.
//
// Blocks live in another table and cannot take part in the constraint.
// Reserve takes FOR SHARE on the room row and BlockRepository.CreateBlock
// takes FOR UPDATE on it, so a block and a booking on the same room never
// commit on top of each other. Bookings on the same room still run
// concurrently under the shared lock; the constraint orders them.
//
// ─────────────────────────────────────────────────────────────────────────────
func (r *BookingRepository) Reserve(ctx context.Context, roomID string, prepare PrepareFunc) (*model.Booking, error) {
	if _, err := uuid.Parse(roomID); err != nil {
		return nil, apperror.ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(ctx) }()

	// ── Step 1: Read the room's configuration and hold off new blocks. ──────
	room, err := scanRoom(tx.QueryRow(ctx, `SELECT `+roomColumns+` WHERE r.id = $1 FOR SHARE OF r`, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("lock room row: %w", err)
	}

	// ── Step 2: Let the caller validate and price against this snapshot. ───
	blocks, err := roomBlocks(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}
	b, err := prepare(room, blocks)
	if err != nil {
		return nil, err
	}

	// ── Step 3: Insert. The exclusion constraint is the final word. ────────
	now := r.now().UTC()
	b.ID = uuid.New().String()
	b.Code = newBookingCode()
	b.CreatedAt, b.UpdatedAt = now, now
	if err := insertBooking(ctx, tx, b); err != nil {
		return nil, mapWriteError("insert booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapWriteError("commit booking", err)
	}
	return b, nil
}

func insertBooking(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	p := b.Price
	g := b.Guest
	_, err := tx.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		         $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
		b.ID, b.Code, b.PropertyID, b.RoomID, b.CheckIn.Time(), b.CheckOut.Time(), b.GuestCount,
		g.FirstName, g.LastName, g.Email, g.Phone, g.Country, g.SpecialRequests,
		string(b.Status), p.Nights, p.PricePerNight, p.Subtotal, string(p.DiscountTier), p.DiscountPercent, p.DiscountAmount,
		p.CleaningFee, p.Total, p.Currency, p.DepositPercent, p.DepositAmount,
		b.ExpiresAt, b.CancelledAt, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// GetBooking returns a single booking or apperror.ErrNotFound.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperror.ErrNotFound
	}
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateStatus moves a booking from one status to another. It only succeeds
// if the booking is still in from; otherwise it returns ErrStatusChanged.
// Moving into an occupying status can still hit the exclusion constraint.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`UPDATE bookings
		 SET status = $3,
		     updated_at = $4,
		     cancelled_at = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancelled_at END,
		     expires_at = CASE WHEN $3 = 'pending' THEN expires_at ELSE NULL END
		 WHERE id = $1 AND status = $2
		 RETURNING `+bookingColumns,
		id, string(from), string(to), at,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, mapWriteError("update booking status", err)
	}
	return b, nil
}

func scanBooking(row row) (*model.Booking, error) {
	var (
		b                 model.Booking
		checkIn, checkOut time.Time
		status, tier      string
	)
	g := &b.Guest
	p := &b.Price
	err := row.Scan(
		&b.ID, &b.Code, &b.PropertyID, &b.RoomID, &checkIn, &checkOut, &b.GuestCount,
		&g.FirstName, &g.LastName, &g.Email, &g.Phone, &g.Country, &g.SpecialRequests,
		&status, &p.Nights, &p.PricePerNight, &p.Subtotal, &tier, &p.DiscountPercent, &p.DiscountAmount,
		&p.CleaningFee, &p.Total, &p.Currency, &p.DepositPercent, &p.DepositAmount,
		&b.ExpiresAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CheckIn = model.DateOf(checkIn)
	b.CheckOut = model.DateOf(checkOut)
	b.Status = model.BookingStatus(status)
	p.DiscountTier = model.DiscountTier(tier)
	return &b, nil
}
