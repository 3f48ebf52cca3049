// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/availability"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/Shivanand-hulikatti/stay-booking/internal/notify"
	"github.com/Shivanand-hulikatti/stay-booking/internal/pricing"
	"github.com/Shivanand-hulikatti/stay-booking/internal/repository"
)

// RoomStore reads rooms and what occupies them.
type RoomStore interface {
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	OccupiedRanges(ctx context.Context, roomID string) ([]model.OccupiedRange, error)
}

// BookingStore persists bookings. Reserve must run prepare and the insert
// in one transaction and report an overlapping insert as
// apperror.ErrDatesUnavailable.
type BookingStore interface {
	Reserve(ctx context.Context, roomID string, prepare repository.PrepareFunc) (*model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) (*model.Booking, error)
}

// BlockStore persists administrative blocks. Both methods return the ids
// of the rooms whose calendars changed.
type BlockStore interface {
	CreateBlock(ctx context.Context, block *model.BlockedRange) ([]string, error)
	DeleteBlock(ctx context.Context, id string) (*model.BlockedRange, []string, error)
}

// ChangePublisher fans out calendar changes to live subscribers.
type ChangePublisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithNotifier sets the dispatcher for guest/host notifications.
func WithNotifier(d notify.Dispatcher) Option {
	return func(s *BookingService) { s.notifier = d }
}

// WithChangePublisher sets where calendar changes are published.
func WithChangePublisher(p ChangePublisher) Option {
	return func(s *BookingService) { s.changes = p }
}

// WithSideEffectTimeout bounds each post-commit notification or publish.
func WithSideEffectTimeout(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.sideEffectTimeout = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// BookingService orchestrates availability, pricing and reservations.
type BookingService struct {
	rooms    RoomStore
	bookings BookingStore
	blocks   BlockStore
	resolver *availability.Resolver
	notifier notify.Dispatcher
	changes  ChangePublisher
	now      func() time.Time

	sideEffectTimeout time.Duration
	wg                sync.WaitGroup
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(rooms RoomStore, bookings BookingStore, blocks BlockStore, opts ...Option) *BookingService {
	s := &BookingService{
		rooms:             rooms,
		bookings:          bookings,
		blocks:            blocks,
		resolver:          availability.NewResolver(rooms),
		notifier:          notify.LogDispatcher{},
		now:               time.Now,
		sideEffectTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until every in-flight notification has finished. Called on
// shutdown.
func (s *BookingService) Wait() {
	s.wg.Wait()
}

// ─── Availability ────────────────────────────────────────────────────────────

// IsAvailable reports whether every night of r is free on the room.
func (s *BookingService) IsAvailable(ctx context.Context, roomID string, r model.DateRange) (bool, error) {
	return s.resolver.IsAvailable(ctx, roomID, r)
}

// BookedRanges lists the room's occupied ranges for calendar rendering.
func (s *BookingService) BookedRanges(ctx context.Context, roomID string) (iter.Seq[model.DateRange], error) {
	return s.resolver.BookedRanges(ctx, roomID)
}

// Calendar returns per-night status for the back office.
func (s *BookingService) Calendar(ctx context.Context, roomID string, r model.DateRange) ([]availability.Day, error) {
	return s.resolver.Calendar(ctx, roomID, r)
}

// Quote prices a stay from the room's current configuration.
func (s *BookingService) Quote(ctx context.Context, roomID string, r model.DateRange) (model.PriceBreakdown, error) {
	if err := r.Validate(); err != nil {
		return model.PriceBreakdown{}, err
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return model.PriceBreakdown{}, err
	}
	if err := checkStayRules(room, r, 0); err != nil {
		return model.PriceBreakdown{}, err
	}
	return pricing.ComputeBreakdown(pricing.InputForRoom(room, r))
}

// ─── Reservations ────────────────────────────────────────────────────────────

// CreateBooking validates the request and reserves the room.
//
// The availability check done here only fails fast with a friendly error.
// The authoritative check is the exclusion constraint hit by the insert in
// Reserve: when two requests race for overlapping nights, whichever commits
// first wins and the other gets apperror.ErrDatesUnavailable. Stay rules
// are checked again inside Reserve against the configuration read in that
// transaction, since it may have changed since the guest was quoted.
func (s *BookingService) CreateBooking(ctx context.Context, req model.CreateBookingRequest) (*model.Booking, error) {
	r, err := model.ParseDateRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if req.GuestCount < 1 {
		return nil, apperror.Validation("guestCount must be at least 1")
	}
	req.GuestInfo.Email = strings.TrimSpace(strings.ToLower(req.GuestInfo.Email))
	if req.GuestInfo.Email == "" {
		return nil, apperror.Validation("guest email is required")
	}

	now := s.now().UTC()
	if r.CheckIn.Before(model.DateOf(now)) {
		return nil, apperror.Validation("check-in %s is in the past", r.CheckIn)
	}

	room, err := s.rooms.GetRoom(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}
	if err := checkStayRules(room, r, req.GuestCount); err != nil {
		return nil, err
	}
	available, err := s.resolver.IsAvailable(ctx, req.UnitID, r)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperror.ErrDatesUnavailable
	}

	booking, err := s.bookings.Reserve(ctx, req.UnitID, func(room *model.Room, blocks []model.OccupiedRange) (*model.Booking, error) {
		if err := checkStayRules(room, r, req.GuestCount); err != nil {
			return nil, err
		}
		if _, conflict := availability.FirstConflict(blocks, r); conflict {
			return nil, apperror.ErrDatesUnavailable
		}
		price, err := pricing.ComputeBreakdown(pricing.InputForRoom(room, r))
		if err != nil {
			return nil, err
		}

		b := &model.Booking{
			PropertyID: room.PropertyID,
			RoomID:     room.ID,
			CheckIn:    r.CheckIn,
			CheckOut:   r.CheckOut,
			GuestCount: req.GuestCount,
			Guest:      req.GuestInfo,
			Status:     model.StatusConfirmed,
			Price:      price,
		}
		if room.Property.BookingMode == model.ModeInquiry {
			hours := room.Property.InquiryTimeoutHours
			if hours <= 0 {
				hours = 24
			}
			expires := now.Add(time.Duration(hours) * time.Hour)
			b.Status = model.StatusPending
			b.ExpiresAt = &expires
		}
		return b, nil
	})
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve room: %w", err)
	}

	s.announce(ctx, booking, model.ChangeBookingCreated, notify.BookingCreated)
	return booking, nil
}

// GetBooking returns a booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperror.Validation("booking id is required")
	}
	return s.bookings.GetBooking(ctx, id)
}

// Cancel cancels a pending, confirmed or checked-in booking. Cancelling a
// cancelled booking fails with apperror.ErrAlreadyCancelled.
func (s *BookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.StatusCancelled)
}

// CancelIdempotent is Cancel for callers that treat a repeated cancellation
// as success.
func (s *BookingService) CancelIdempotent(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.Cancel(ctx, id)
	if errors.Is(err, apperror.ErrAlreadyCancelled) {
		return s.bookings.GetBooking(ctx, id)
	}
	return b, err
}

// Confirm accepts a pending inquiry.
func (s *BookingService) Confirm(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.StatusConfirmed)
}

// CheckIn marks the guest as arrived.
func (s *BookingService) CheckIn(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.StatusCheckedIn)
}

// CheckOut closes a stay.
func (s *BookingService) CheckOut(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.StatusCheckedOut)
}

// MarkNoShow records that a confirmed guest never arrived.
func (s *BookingService) MarkNoShow(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.StatusNoShow)
}

func (s *BookingService) transition(ctx context.Context, id string, to model.BookingStatus) (*model.Booking, error) {
	current, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(current.Status, to); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, current.Status, to, s.now().UTC())
	if errors.Is(err, repository.ErrStatusChanged) {
		// Someone else moved the booking first; report against what won.
		latest, getErr := s.bookings.GetBooking(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if err := checkTransition(latest.Status, to); err != nil {
			return nil, err
		}
		return nil, apperror.ErrInvalidTransition.WithMessage("booking %s changed status concurrently", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	kind := notify.BookingStatusChanged
	if to == model.StatusCancelled {
		kind = notify.BookingCancelled
	}
	s.announce(ctx, updated, model.ChangeBookingStatusChanged, kind)
	return updated, nil
}

// ─── Blocks ──────────────────────────────────────────────────────────────────

// CreateBlock blocks a range on one room or, without a unit id, on the
// whole property.
func (s *BookingService) CreateBlock(ctx context.Context, req model.CreateBlockRequest) (*model.BlockedRange, error) {
	r, err := model.ParseDateRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	block := &model.BlockedRange{
		PropertyID: req.PropertyID,
		RoomID:     req.UnitID,
		Range:      r,
		Reason:     req.Reason,
		Notes:      strings.TrimSpace(req.Notes),
	}
	roomIDs, err := s.blocks.CreateBlock(ctx, block)
	if err != nil {
		return nil, err
	}
	for _, roomID := range roomIDs {
		s.publish(ctx, model.ChangeEvent{
			Kind:       model.ChangeBlockCreated,
			RoomID:     roomID,
			BlockID:    block.ID,
			Range:      block.Range,
			OccurredAt: s.now().UTC(),
		})
	}
	return block, nil
}

// DeleteBlock removes a block.
func (s *BookingService) DeleteBlock(ctx context.Context, id string) error {
	if id == "" {
		return apperror.Validation("block id is required")
	}
	block, roomIDs, err := s.blocks.DeleteBlock(ctx, id)
	if err != nil {
		return err
	}
	for _, roomID := range roomIDs {
		s.publish(ctx, model.ChangeEvent{
			Kind:       model.ChangeBlockDeleted,
			RoomID:     roomID,
			BlockID:    block.ID,
			Range:      block.Range,
			OccurredAt: s.now().UTC(),
		})
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// checkStayRules validates a stay against the room's configuration. A zero
// guest count skips the capacity check (quotes).
func checkStayRules(room *model.Room, r model.DateRange, guests int) error {
	if !room.Bookable() {
		return apperror.ErrRoomUnavailable
	}
	nights := r.Nights()
	minNights := max(room.Property.MinNights, 1)
	if nights < minNights {
		return apperror.ErrMinNightsNotMet.WithMessage("minimum stay is %d nights, requested %d", minNights, nights)
	}
	if room.Property.MaxNights > 0 && nights > room.Property.MaxNights {
		return apperror.ErrMaxNightsExceeded.WithMessage("maximum stay is %d nights, requested %d", room.Property.MaxNights, nights)
	}
	if guests > room.Capacity {
		return apperror.ErrMaxGuestsExceeded.WithMessage("room sleeps %d, requested %d", room.Capacity, guests)
	}
	return nil
}

func checkTransition(from, to model.BookingStatus) error {
	if from == model.StatusCancelled && to == model.StatusCancelled {
		return apperror.ErrAlreadyCancelled
	}
	if !from.CanTransitionTo(to) {
		return apperror.ErrInvalidTransition.WithMessage("cannot move booking from %s to %s", from, to)
	}
	return nil
}

// announce publishes the calendar change and sends the notification. Both
// run after the write has committed and neither can fail the request.
func (s *BookingService) announce(ctx context.Context, b *model.Booking, change model.ChangeKind, kind notify.EventType) {
	now := s.now().UTC()
	s.publish(ctx, model.ChangeEvent{
		Kind:       change,
		RoomID:     b.RoomID,
		BookingID:  b.ID,
		Status:     b.Status,
		Range:      b.Range(),
		OccurredAt: now,
	})
	if s.notifier == nil {
		return
	}
	ev := notify.Event{Type: kind, Booking: *b, OccurredAt: now}
	s.background(ctx, "notify "+string(kind), func(ctx context.Context) error {
		return s.notifier.Dispatch(ctx, ev)
	})
}

func (s *BookingService) publish(ctx context.Context, ev model.ChangeEvent) {
	if s.changes == nil {
		return
	}
	s.background(ctx, "publish "+string(ev.Kind), func(ctx context.Context) error {
		return s.changes.Publish(ctx, ev)
	})
}

func (s *BookingService) background(ctx context.Context, what string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("%s failed (booking unaffected): %v", what, err)
		}
	}()
}
