// Package repository implements all database queries for the stay booking
// system. It uses pgx directly (no ORM).
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStatusChanged is returned by UpdateStatus when the booking is no longer
// in the expected status.
var ErrStatusChanged = errors.New("booking status changed concurrently")

// SQLSTATE codes the repository reacts to.
const (
	sqlStateExclusionViolation = "23P01"
	sqlStateForeignKey         = "23503"
	sqlStateDeadlock           = "40P01"
)

// PrepareFunc builds the booking to insert from the room configuration and
// the blocks read inside the reserving transaction. Returning an error
// aborts the reservation.
type PrepareFunc func(room *model.Room, blocks []model.OccupiedRange) (*model.Booking, error)

// row is satisfied by pgx.Row and pgx.Rows.
type row interface {
	Scan(dest ...any) error
}

// occupyingStatuses is the status list the exclusion constraint guards, as
// query arguments.
func occupyingStatuses() []string {
	out := make([]string, 0, len(model.OccupyingStatuses))
	for _, s := range model.OccupyingStatuses {
		out = append(out, string(s))
	}
	return out
}

// mapWriteError converts constraint violations into domain errors. Anything
// else is wrapped with op.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateExclusionViolation:
			return apperror.ErrDatesUnavailable
		case sqlStateDeadlock:
			// Two overlapping inserts waiting on each other's constraint
			// check; Postgres aborts one and the other commits.
			return apperror.ErrDatesUnavailable
		case sqlStateForeignKey:
			return apperror.ErrNotFound.WithMessage("referenced record does not exist")
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// newBookingCode returns the short reference guests quote to the host.
func newBookingCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ST-" + strings.ToUpper(id[:8])
}
