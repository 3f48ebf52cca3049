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

// BlockRepository handles persistence for administrative blocks.
type BlockRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewBlockRepository constructs a BlockRepository.
func NewBlockRepository(db *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{db: db, now: time.Now}
}

// CreateBlock inserts a block after checking that no occupying booking
// overlaps it on any affected room. The affected rooms are locked FOR UPDATE
// for the duration, which waits out in-flight reservations (they hold FOR
// SHARE) and keeps new ones from starting. It returns the affected room ids.
func (r *BlockRepository) CreateBlock(ctx context.Context, block *model.BlockedRange) ([]string, error) {
	if _, err := uuid.Parse(block.PropertyID); err != nil {
		return nil, apperror.ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// ── Step 1: Lock every room the block covers. ──────────────────────────
	var rows pgx.Rows
	if block.RoomID != nil {
		rows, err = tx.Query(ctx,
			`SELECT id FROM rooms WHERE id = $1 AND property_id = $2 FOR UPDATE`,
			*block.RoomID, block.PropertyID)
	} else {
		rows, err = tx.Query(ctx,
			`SELECT id FROM rooms WHERE property_id = $1 ORDER BY id FOR UPDATE`,
			block.PropertyID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock rooms: %w", err)
	}
	roomIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("lock rooms: %w", err)
	}
	if len(roomIDs) == 0 {
		return nil, apperror.ErrNotFound.WithMessage("no such room on property %s", block.PropertyID)
	}

	// ── Step 2: Refuse to block nights a guest already holds. ──────────────
	var conflictID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM bookings
		 WHERE room_id = ANY($1::uuid[])
		   AND status = ANY($2::text[])
		   AND daterange(check_in_date, check_out_date, '[)') && daterange($3::date, $4::date, '[)')
		 LIMIT 1`,
		roomIDs, occupyingStatuses(), block.Range.CheckIn.Time(), block.Range.CheckOut.Time(),
	).Scan(&conflictID)
	switch {
	case err == nil:
		return nil, apperror.ErrDatesUnavailable.WithMessage("booking %s overlaps %s", conflictID, block.Range)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("check overlapping bookings: %w", err)
	}

	// ── Step 3: Insert. ────────────────────────────────────────────────────
	block.ID = uuid.New().String()
	block.CreatedAt = r.now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO room_blocks (id, property_id, room_id, start_date, end_date, reason, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		block.ID, block.PropertyID, block.RoomID, block.Range.CheckIn.Time(), block.Range.CheckOut.Time(),
		block.Reason, block.Notes, block.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteError("insert block", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit block: %w", err)
	}
	return roomIDs, nil
}

// DeleteBlock removes a block and returns it with the ids of the rooms it
// covered.
func (r *BlockRepository) DeleteBlock(ctx context.Context, id string) (*model.BlockedRange, []string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, apperror.ErrNotFound
	}

	var (
		b        model.BlockedRange
		from, to time.Time
	)
	err := r.db.QueryRow(ctx,
		`DELETE FROM room_blocks WHERE id = $1
		 RETURNING id, property_id, room_id, start_date, end_date, reason, notes, created_at`,
		id,
	).Scan(&b.ID, &b.PropertyID, &b.RoomID, &from, &to, &b.Reason, &b.Notes, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperror.ErrNotFound
		}
		return nil, nil, fmt.Errorf("delete block: %w", err)
	}
	b.Range = model.DateRange{CheckIn: model.DateOf(from), CheckOut: model.DateOf(to)}

	if b.RoomID != nil {
		return &b, []string{*b.RoomID}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id FROM rooms WHERE property_id = $1 ORDER BY id`, b.PropertyID)
	if err != nil {
		return nil, nil, fmt.Errorf("list property rooms: %w", err)
	}
	roomIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, nil, fmt.Errorf("list property rooms: %w", err)
	}
	return &b, roomIDs, nil
}
