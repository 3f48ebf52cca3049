// Package availability answers whether a room is free for a date range and
// renders its occupancy for calendars. It only reads.
package availability

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
)

// Source is the read-only snapshot the resolver works from.
type Source interface {
	// GetRoom returns apperror.ErrNotFound for unknown rooms.
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	// OccupiedRanges lists bookings in an occupying status and blocks on
	// the room or its whole property.
	OccupiedRanges(ctx context.Context, roomID string) ([]model.OccupiedRange, error)
}

// DayStatus is the state of a single night on a calendar.
type DayStatus string

const (
	DayAvailable DayStatus = "available"
	DayBooked    DayStatus = "booked"
	DayBlocked   DayStatus = "blocked"
)

// Day is one calendar cell.
type Day struct {
	Date   model.Date `json:"date"`
	Status DayStatus  `json:"status"`
	Ref    string     `json:"ref,omitempty"`
}

// Resolver checks ranges against a room's occupancy.
type Resolver struct {
	src Source
}

// NewResolver constructs a Resolver.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// IsAvailable reports whether every night of r is free on the room.
func (res *Resolver) IsAvailable(ctx context.Context, roomID string, r model.DateRange) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	occupied, err := res.load(ctx, roomID)
	if err != nil {
		return false, err
	}
	_, conflict := FirstConflict(occupied, r)
	return !conflict, nil
}

// BookedRanges returns the room's occupying ranges sorted by check-in. The
// sequence iterates a snapshot taken at call time, so ranging over it again
// yields the same ranges.
func (res *Resolver) BookedRanges(ctx context.Context, roomID string) (iter.Seq[model.DateRange], error) {
	occupied, err := res.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return func(yield func(model.DateRange) bool) {
		for _, o := range occupied {
			if !yield(o.Range) {
				return
			}
		}
	}, nil
}

// Calendar returns one entry per night in r. Blocks win over bookings.
func (res *Resolver) Calendar(ctx context.Context, roomID string, r model.DateRange) ([]Day, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Nights() > 366 {
		return nil, apperror.Validation("calendar window is limited to 366 nights")
	}
	occupied, err := res.load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	days := make([]Day, 0, r.Nights())
	for d := range r.Days() {
		day := Day{Date: d, Status: DayAvailable}
		for _, o := range occupied {
			if !o.Range.Contains(d) {
				continue
			}
			if o.Kind == model.OccupiedByBlock {
				day.Status, day.Ref = DayBlocked, o.Ref
				break
			}
			day.Status, day.Ref = DayBooked, o.Ref
		}
		days = append(days, day)
	}
	return days, nil
}

// FirstConflict returns the first occupied range overlapping r.
func FirstConflict(occupied []model.OccupiedRange, r model.DateRange) (model.OccupiedRange, bool) {
	for _, o := range occupied {
		if o.Range.Overlaps(r) {
			return o, true
		}
	}
	return model.OccupiedRange{}, false
}

func (res *Resolver) load(ctx context.Context, roomID string) ([]model.OccupiedRange, error) {
	if _, err := res.src.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	occupied, err := res.src.OccupiedRanges(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load occupied ranges: %w", err)
	}
	occupied = slices.Clone(occupied)
	slices.SortStableFunc(occupied, func(a, b model.OccupiedRange) int {
		return a.Range.CheckIn.Time().Compare(b.Range.CheckIn.Time())
	})
	return occupied, nil
}
