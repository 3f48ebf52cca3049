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

const roomColumns = `
	r.id, r.property_id, r.name, r.base_price, r.currency, r.max_guests, r.is_active,
	p.id, p.slug, p.name, p.booking_mode, p.min_nights, p.max_nights, p.cleaning_fee,
	p.weekly_discount_percent, p.monthly_discount_percent, p.inquiry_timeout_hours,
	p.deposit_percent, p.is_active
	FROM rooms r JOIN properties p ON p.id = r.property_id`

// querier is what both a pool and a transaction offer.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RoomRepository reads rooms and their occupancy.
type RoomRepository struct {
	db *pgxpool.Pool
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// GetRoom returns a room with its property's current configuration, or
// apperror.ErrNotFound.
func (r *RoomRepository) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	if _, err := uuid.Parse(roomID); err != nil {
		return nil, apperror.ErrNotFound
	}
	room, err := scanRoom(r.db.QueryRow(ctx, `SELECT `+roomColumns+` WHERE r.id = $1`, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// OccupiedRanges returns the room's bookings in an occupying status together
// with the blocks on the room or on its whole property.
func (r *RoomRepository) OccupiedRanges(ctx context.Context, roomID string) ([]model.OccupiedRange, error) {
	bookings, err := queryRanges(ctx, r.db,
		`SELECT id, check_in_date, check_out_date
		 FROM bookings
		 WHERE room_id = $1 AND status = ANY($2::text[])`,
		model.OccupiedByBooking, roomID, occupyingStatuses(),
	)
	if err != nil {
		return nil, fmt.Errorf("list booked ranges: %w", err)
	}
	blocks, err := roomBlocks(ctx, r.db, roomID)
	if err != nil {
		return nil, err
	}
	return append(bookings, blocks...), nil
}

// roomBlocks lists the blocks that apply to a room.
func roomBlocks(ctx context.Context, q querier, roomID string) ([]model.OccupiedRange, error) {
	blocks, err := queryRanges(ctx, q,
		`SELECT b.id, b.start_date, b.end_date
		 FROM room_blocks b
		 JOIN rooms r ON r.property_id = b.property_id
		 WHERE r.id = $1 AND (b.room_id IS NULL OR b.room_id = r.id)`,
		model.OccupiedByBlock, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked ranges: %w", err)
	}
	return blocks, nil
}

func queryRanges(ctx context.Context, q querier, sql string, kind model.OccupancyKind, args ...any) ([]model.OccupiedRange, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OccupiedRange
	for rows.Next() {
		var (
			id       string
			from, to time.Time
		)
		if err := rows.Scan(&id, &from, &to); err != nil {
			return nil, err
		}
		out = append(out, model.OccupiedRange{
			Range: model.DateRange{CheckIn: model.DateOf(from), CheckOut: model.DateOf(to)},
			Kind:  kind,
			Ref:   id,
		})
	}
	return out, rows.Err()
}

func scanRoom(row row) (*model.Room, error) {
	var (
		room model.Room
		mode string
	)
	p := &room.Property
	err := row.Scan(
		&room.ID, &room.PropertyID, &room.Name, &room.BasePrice, &room.Currency, &room.Capacity, &room.Active,
		&p.ID, &p.Slug, &p.Name, &mode, &p.MinNights, &p.MaxNights, &p.CleaningFee,
		&p.WeeklyDiscountPercent, &p.MonthlyDiscountPercent, &p.InquiryTimeoutHours,
		&p.DepositPercent, &p.Active,
	)
	if err != nil {
		return nil, err
	}
	p.BookingMode = model.BookingMode(mode)
	return &room, nil
}
