package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/database"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// ExpiredInquiry is a pending booking whose confirmation window has passed.
type ExpiredInquiry struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	CheckIn   time.Time `db:"check_in_date"`
	CheckOut  time.Time `db:"check_out_date"`
	ExpiresAt time.Time `db:"expires_at"`
}

// SweepRepository is the data access of the housekeeping batch.
type SweepRepository interface {
	ExpiredInquiries(ctx context.Context, now time.Time) ([]ExpiredInquiry, error)
	ExpireInquiry(ctx context.Context, id string, now time.Time) (bool, error)
	PurgeExpiredDocuments(ctx context.Context, retentionDays int) (int64, error)
}

// SweepRepositoryImpl runs the batch queries over sqlx.
type SweepRepositoryImpl struct {
	db *database.BatchDB
}

// NewSweepRepository constructs a SweepRepositoryImpl.
func NewSweepRepository(db *database.BatchDB) *SweepRepositoryImpl {
	return &SweepRepositoryImpl{db: db}
}

// ExpiredInquiries lists pending bookings whose expiry is before now.
func (r *SweepRepositoryImpl) ExpiredInquiries(ctx context.Context, now time.Time) ([]ExpiredInquiry, error) {
	var out []ExpiredInquiry
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, room_id, check_in_date, check_out_date, expires_at
		FROM bookings
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired inquiries: %w", err)
	}
	return out, nil
}

// ExpireInquiry cancels one expired inquiry in its own transaction. It
// returns false when the booking was confirmed, cancelled or locked by
// someone else in the meantime.
func (r *SweepRepositoryImpl) ExpireInquiry(ctx context.Context, id string, now time.Time) (bool, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SweepRepository.ExpireInquiry")
	if seg != nil {
		defer seg.Close(nil)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.GetContext(ctx, &locked, `
		SELECT id FROM bookings
		WHERE id = $1 AND status = 'pending' AND expires_at < $2
		FOR UPDATE SKIP LOCKED`,
		id, now,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock inquiry %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    cancelled_at = $2,
		    updated_at = $2,
		    expires_at = NULL,
		    cancellation_reason = 'inquiry_expired'
		WHERE id = $1`,
		id, now,
	); err != nil {
		return false, fmt.Errorf("expire inquiry %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit inquiry %s: %w", id, err)
	}
	return true, nil
}

// PurgeExpiredDocuments deletes guest documents of stays that checked out
// more than retentionDays ago. The cut-off is computed by the database.
func (r *SweepRepositoryImpl) PurgeExpiredDocuments(ctx context.Context, retentionDays int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM guest_documents d
		USING bookings b
		WHERE d.booking_id = b.id
		  AND b.check_out_date + $1::int < current_date`,
		retentionDays,
	)
	if err != nil {
		return 0, fmt.Errorf("purge guest documents: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge guest documents: %w", err)
	}
	return n, nil
}
