package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/availability"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/Shivanand-hulikatti/stay-booking/internal/notify"
	"github.com/Shivanand-hulikatti/stay-booking/internal/repository"
)

// memStore is an in-memory RoomStore, BookingStore and BlockStore. Like the
// database, it rejects an insert whose nights overlap an occupying booking
// on the same room at insert time, whatever the caller checked before.
type memStore struct {
	mu       sync.Mutex
	rooms    map[string]*model.Room
	bookings map[string]*model.Booking
	blocks   map[string]*model.BlockedRange
	seq      int

	reserveCalls  int
	beforePrepare func(room *model.Room)
}

func newMemStore(rooms ...*model.Room) *memStore {
	s := &memStore{
		rooms:    make(map[string]*model.Room),
		bookings: make(map[string]*model.Booking),
		blocks:   make(map[string]*model.BlockedRange),
	}
	for _, r := range rooms {
		s.rooms[r.ID] = r
	}
	return s
}

func (s *memStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) OccupiedRanges(ctx context.Context, roomID string) ([]model.OccupiedRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OccupiedRange
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status.Occupies() {
			out = append(out, model.OccupiedRange{Range: b.Range(), Kind: model.OccupiedByBooking, Ref: b.ID})
		}
	}
	return append(out, s.blocksFor(roomID)...), nil
}

func (s *memStore) blocksFor(roomID string) []model.OccupiedRange {
	room := s.rooms[roomID]
	var out []model.OccupiedRange
	for _, b := range s.blocks {
		if b.PropertyID != room.PropertyID || (b.RoomID != nil && *b.RoomID != roomID) {
			continue
		}
		out = append(out, model.OccupiedRange{Range: b.Range, Kind: model.OccupiedByBlock, Ref: b.ID})
	}
	return out
}

func (s *memStore) Reserve(ctx context.Context, roomID string, prepare repository.PrepareFunc) (*model.Booking, error) {
	s.mu.Lock()
	s.reserveCalls++
	r, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return nil, apperror.ErrNotFound
	}
	if s.beforePrepare != nil {
		s.beforePrepare(r)
	}
	room := *r
	blocks := s.blocksFor(roomID)
	s.mu.Unlock()

	// Other reservations may run here, as concurrent transactions would.
	b, err := prepare(&room, blocks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overlapsLocked(roomID, b.Range(), "") {
		return nil, apperror.ErrDatesUnavailable
	}
	s.seq++
	b.ID = fmt.Sprintf("booking-%d", s.seq)
	b.Code = fmt.Sprintf("ST-%08d", s.seq)
	stored := *b
	s.bookings[b.ID] = &stored
	return b, nil
}

func (s *memStore) overlapsLocked(roomID string, r model.DateRange, except string) bool {
	for _, other := range s.bookings {
		if other.ID != except && other.RoomID == roomID && other.Status.Occupies() && other.Range().Overlaps(r) {
			return true
		}
	}
	return false
}

func (s *memStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return nil, repository.ErrStatusChanged
	}
	if to.Occupies() && !from.Occupies() && s.overlapsLocked(b.RoomID, b.Range(), b.ID) {
		return nil, apperror.ErrDatesUnavailable
	}
	b.Status = to
	b.UpdatedAt = at
	if to == model.StatusCancelled {
		b.CancelledAt = &at
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) CreateBlock(ctx context.Context, block *model.BlockedRange) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var roomIDs []string
	for id, r := range s.rooms {
		if r.PropertyID == block.PropertyID && (block.RoomID == nil || *block.RoomID == id) {
			roomIDs = append(roomIDs, id)
		}
	}
	if len(roomIDs) == 0 {
		return nil, apperror.ErrNotFound
	}
	for _, id := range roomIDs {
		if s.overlapsLocked(id, block.Range, "") {
			return nil, apperror.ErrDatesUnavailable
		}
	}
	s.seq++
	block.ID = fmt.Sprintf("block-%d", s.seq)
	stored := *block
	s.blocks[block.ID] = &stored
	return roomIDs, nil
}

func (s *memStore) DeleteBlock(ctx context.Context, id string) (*model.BlockedRange, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, nil, apperror.ErrNotFound
	}
	delete(s.blocks, id)
	var roomIDs []string
	for rid, r := range s.rooms {
		if r.PropertyID == b.PropertyID && (b.RoomID == nil || *b.RoomID == rid) {
			roomIDs = append(roomIDs, rid)
		}
	}
	return b, roomIDs, nil
}

// recorder collects notifications and change events.
type recorder struct {
	mu      sync.Mutex
	notices []notify.Event
	changes []model.ChangeEvent
	err     error
}

func (r *recorder) Dispatch(ctx context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, ev)
	return r.err
}

func (r *recorder) Publish(ctx context.Context, ev model.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
	return r.err
}

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testRoom() *model.Room {
	return &model.Room{
		ID:         "room-1",
		PropertyID: "prop-1",
		Name:       "Garden Suite",
		BasePrice:  100,
		Currency:   "EUR",
		Capacity:   2,
		Active:     true,
		Property: model.Property{
			ID:                    "prop-1",
			BookingMode:           model.ModeInstant,
			MinNights:             1,
			CleaningFee:           20,
			WeeklyDiscountPercent: 10,
			InquiryTimeoutHours:   24,
			Active:                true,
		},
	}
}

func newTestService(store *memStore, rec *recorder) *BookingService {
	return NewBookingService(store, store, store,
		WithNotifier(rec),
		WithChangePublisher(rec),
		WithClock(func() time.Time { return testNow }),
	)
}

func bookingReq(room, in, out string, guests int) model.CreateBookingRequest {
	return model.CreateBookingRequest{
		UnitID:     room,
		CheckIn:    in,
		CheckOut:   out,
		GuestCount: guests,
		GuestInfo: model.GuestInfo{
			FirstName: "Ana",
			LastName:  "Silva",
			Email:     "Ana@Example.com ",
			Phone:     "+351900000000",
		},
	}
}

func TestCreateBookingInstant(t *testing.T) {
	store := newMemStore(testRoom())
	rec := &recorder{}
	svc := newTestService(store, rec)

	b, err := svc.CreateBooking(context.Background(), bookingReq("room-1", "2024-06-10", "2024-06-17", 2))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	svc.Wait()

	if b.Status != model.StatusConfirmed || b.ExpiresAt != nil {
		t.Errorf("status = %s, expiresAt = %v", b.Status, b.ExpiresAt)
	}
	if b.Price.Total != 650 || b.Price.DiscountTier != model.TierWeekly {
		t.Errorf("price = %+v, want total 650 weekly", b.Price)
	}
	if b.Price.DepositAmount != 650 {
		t.Errorf("deposit = %d, want full total", b.Price.DepositAmount)
	}
	if b.Guest.Email != "ana@example.com" {
		t.Errorf("email not normalised: %q", b.Guest.Email)
	}
	if len(rec.notices) != 1 || rec.notices[0].Type != notify.BookingCreated {
		t.Errorf("notices = %+v", rec.notices)
	}
	if len(rec.changes) != 1 || rec.changes[0].Kind != model.ChangeBookingCreated || rec.changes[0].RoomID != "room-1" {
		t.Errorf("changes = %+v", rec.changes)
	}
}

func TestCreateBookingInquiryStartsPending(t *testing.T) {
	room := testRoom()
	room.Property.BookingMode = model.ModeInquiry
	room.Property.InquiryTimeoutHours = 48
	svc := newTestService(newMemStore(room), &recorder{})

	b, err := svc.CreateBooking(context.Background(), bookingReq("room-1", "2024-06-10", "2024-06-12", 1))
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}
	if b.ExpiresAt == nil || !b.ExpiresAt.Equal(testNow.Add(48*time.Hour)) {
		t.Errorf("expiresAt = %v", b.ExpiresAt)
	}

	// Pending bookings hold their nights.
	_, err = svc.CreateBooking(context.Background(), bookingReq("room-1", "2024-06-11", "2024-06-13", 1))
	if !errors.Is(err, apperror.ErrDatesUnavailable) {
		t.Errorf("overlapping a pending inquiry: error = %v", err)
	}
}

func TestCreateBookingRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *model.Room)
		req     model.CreateBookingRequest
		wantErr error
	}{
		{"zero nights", nil, bookingReq("room-1", "2024-06-10", "2024-06-10", 1), apperror.ErrValidation},
		{"check-out before check-in", nil, bookingReq("room-1", "2024-06-10", "2024-06-09", 1), apperror.ErrValidation},
		{"malformed date", nil, bookingReq("room-1", "10/06/2024", "2024-06-12", 1), apperror.ErrValidation},
		{"check-in in the past", nil, bookingReq("room-1", "2024-05-31", "2024-06-02", 1), apperror.ErrValidation},
		{"no guests", nil, bookingReq("room-1", "2024-06-10", "2024-06-12", 0), apperror.ErrValidation},
		{"unknown room", nil, bookingReq("room-9", "2024-06-10", "2024-06-12", 1), apperror.ErrNotFound},
		{"too many guests", nil, bookingReq("room-1", "2024-06-10", "2024-06-12", 3), apperror.ErrMaxGuestsExceeded},
		{"below min nights", func(r *model.Room) { r.Property.MinNights = 3 }, bookingReq("room-1", "2024-06-10", "2024-06-12", 1), apperror.ErrMinNightsNotMet},
		{"above max nights", func(r *model.Room) { r.Property.MaxNights = 5 }, bookingReq("room-1", "2024-06-10", "2024-06-16", 1), apperror.ErrMaxNightsExceeded},
		{"inactive room", func(r *model.Room) { r.Active = false }, bookingReq("room-1", "2024-06-10", "2024-06-12", 1), apperror.ErrRoomUnavailable},
		{"bookings disabled", func(r *model.Room) { r.Property.BookingMode = model.ModeDisabled }, bookingReq("room-1", "2024-06-10", "2024-06-12", 1), apperror.ErrRoomUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := testRoom()
			if tt.mutate != nil {
				tt.mutate(room)
			}
			store := newMemStore(room)
			rec := &recorder{}
			svc := newTestService(store, rec)

			_, err := svc.CreateBooking(context.Background(), tt.req)
			svc.Wait()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateBooking() error = %v, want %v", err, tt.wantErr)
			}
			if store.reserveCalls != 0 {
				t.Errorf("store reached %d times for a rejected request", store.reserveCalls)
			}
			if len(rec.notices)+len(rec.changes) != 0 {
				t.Error("rejected booking produced side effects")
			}
		})
	}
}

func TestCreateBookingRevalidatesInsideReserve(t *testing.T) {
	tests := []struct {
		name    string
		change  func(r *model.Room)
		wantErr error
	}{
		{"min nights raised", func(r *model.Room) { r.Property.MinNights = 5 }, apperror.ErrMinNightsNotMet},
		{"capacity lowered", func(r *model.Room) { r.Capacity = 1 }, apperror.ErrMaxGuestsExceeded},
		{"property deactivated", func(r *model.Room) { r.Property.Active = false }, apperror.ErrRoomUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(testRoom())
			store.beforePrepare = tt.change
			svc := newTestService(store, &recorder{})

			_, err := svc.CreateBooking(context.Background(), bookingReq("room-1", "2024-06-10", "2024-06-12", 2))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateBooking() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBookingPricesFromCurrentConfig(t *testing.T) {
	store := newMemStore(testRoom())
	store.beforePrepare = func(r *model.Room) { r.BasePrice = 200 }
	svc := newTestService(store, &recorder{})

	b, err := svc.CreateBooking(context.Background(), bookingReq("room-1", "2024-06-10", "2024-06-12", 1))
	if err != nil {
		t.Fatal(err)
	}
	if b.Price.PricePerNight != 200 || b.Price.Total != 420 {
		t.Errorf("price = %+v, want 2×200 + 20", b.Price)
	}
}

func TestConcurrentOverlappingBookings(t *testing.T) {
	store := newMemStore(testRoom())
	svc := newTestService(store, &recorder{})

	const attempts = 20
	results := make(chan model.BookingResult, attempts)
	var start sync.WaitGroup
	start.Add(1)
	var done sync.WaitGroup
	for i := range attempts {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			// Every request overlaps night 2024-06-12.
			in := fmt.Sprintf("2024-06-%02d", 10+i%3)
			b, err := svc.CreateBooking(context.Background(), bookingReq("room-1", in, "2024-06-13", 1))
			results <- model.BookingResult{Booking: b, Err: err}
		}()
	}
	start.Done()
	done.Wait()
	close(results)
	svc.Wait()

	var ok int
	for res := range results {
		switch {
		case res.Err == nil:
			ok++
		case !errors.Is(res.Err, apperror.ErrDatesUnavailable):
			t.Errorf("unexpected error: %v", res.Err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d overlapping bookings succeeded, want exactly 1", ok)
	}
}

func TestConcurrentDisjointBookings(t *testing.T) {
	store := newMemStore(testRoom())
	svc := newTestService(store, &recorder{})

	ranges := [][2]string{
		{"2024-06-10", "2024-06-12"},
		{"2024-06-12", "2024-06-14"}, // back to back with the first
		{"2024-06-20", "2024-06-21"},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(ranges))
	for i, r := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), bookingReq("room-1", r[0], r[1], 1))
		}()
	}
	wg.Wait()
	svc.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("booking %v failed: %v", ranges[i], err)
		}
	}
}

func TestBlocksAreRespected(t *testing.T) {
	store := newMemStore(testRoom())
	svc := newTestService(store, &recorder{})
	ctx := context.Background()

	block, err := svc.CreateBlock(ctx, model.CreateBlockRequest{PropertyID: "prop-1", From: "2024-06-15", To: "2024-06-18", Reason: "maintenance"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-14", "2024-06-16", 1)); !errors.Is(err, apperror.ErrDatesUnavailable) {
		t.Errorf("booking over a property block: error = %v", err)
	}
	if _, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-18", "2024-06-19", 1)); err != nil {
		t.Errorf("booking from the block's end: %v", err)
	}

	if err := svc.DeleteBlock(ctx, block.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-14", "2024-06-16", 1)); err != nil {
		t.Errorf("booking after block removal: %v", err)
	}
	svc.Wait()
}

func TestBlockAddedBetweenCheckAndReserve(t *testing.T) {
	store := newMemStore(testRoom())
	roomID := "room-1"
	store.beforePrepare = func(r *model.Room) {
		store.blocks["late"] = &model.BlockedRange{
			ID:         "late",
			PropertyID: "prop-1",
			RoomID:     &roomID,
			Range:      model.DateRange{CheckIn: model.NewDate(2024, 6, 11), CheckOut: model.NewDate(2024, 6, 12)},
		}
	}
	svc := newTestService(store, &recorder{})

	_, err := svc.CreateBooking(context.Background(), bookingReq("room-1", "2024-06-10", "2024-06-13", 1))
	if !errors.Is(err, apperror.ErrDatesUnavailable) {
		t.Errorf("CreateBooking() error = %v, want dates unavailable", err)
	}
}

func TestCreateBlockRejectsBookedNights(t *testing.T) {
	store := newMemStore(testRoom())
	rec := &recorder{}
	svc := newTestService(store, rec)
	ctx := context.Background()

	if _, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-10", "2024-06-12", 1)); err != nil {
		t.Fatal(err)
	}
	roomID := "room-1"
	_, err := svc.CreateBlock(ctx, model.CreateBlockRequest{PropertyID: "prop-1", UnitID: &roomID, From: "2024-06-11", To: "2024-06-15", Reason: "owner_use"})
	if !errors.Is(err, apperror.ErrDatesUnavailable) {
		t.Errorf("CreateBlock() error = %v", err)
	}
	if _, err := svc.CreateBlock(ctx, model.CreateBlockRequest{PropertyID: "prop-1", UnitID: &roomID, From: "2024-06-12", To: "2024-06-15", Reason: "owner_use"}); err != nil {
		t.Errorf("block starting on check-out: %v", err)
	}
	svc.Wait()

	var blockEvents int
	for _, c := range rec.changes {
		if c.Kind == model.ChangeBlockCreated {
			blockEvents++
		}
	}
	if blockEvents != 1 {
		t.Errorf("%d block events, want 1", blockEvents)
	}
}

func TestNotifierFailureDoesNotFailBooking(t *testing.T) {
	store := newMemStore(testRoom())
	rec := &recorder{err: errors.New("workflow unavailable")}
	svc := newTestService(store, rec)

	b, err := svc.CreateBooking(context.Background(), bookingReq("room-1", "2024-06-10", "2024-06-12", 1))
	svc.Wait()
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if _, err := store.GetBooking(context.Background(), b.ID); err != nil {
		t.Errorf("booking not persisted: %v", err)
	}
	if len(rec.notices) != 1 {
		t.Errorf("dispatch attempted %d times", len(rec.notices))
	}
}

func TestCancel(t *testing.T) {
	store := newMemStore(testRoom())
	rec := &recorder{}
	svc := newTestService(store, rec)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-10", "2024-06-12", 1))
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := svc.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != model.StatusCancelled || cancelled.CancelledAt == nil {
		t.Errorf("cancelled booking = %+v", cancelled)
	}

	if _, err := svc.Cancel(ctx, b.ID); !errors.Is(err, apperror.ErrAlreadyCancelled) {
		t.Errorf("second Cancel() error = %v, want already cancelled", err)
	}
	again, err := svc.CancelIdempotent(ctx, b.ID)
	if err != nil || again.Status != model.StatusCancelled {
		t.Errorf("CancelIdempotent() = %v, %v", again, err)
	}
	if _, err := svc.Cancel(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Cancel(missing) error = %v", err)
	}

	// The nights are free again.
	if _, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-10", "2024-06-12", 1)); err != nil {
		t.Errorf("rebooking cancelled nights: %v", err)
	}
	svc.Wait()

	var cancelNotices int
	for _, n := range rec.notices {
		if n.Type == notify.BookingCancelled {
			cancelNotices++
		}
	}
	if cancelNotices != 1 {
		t.Errorf("%d cancellation notices, want 1", cancelNotices)
	}
}

func TestLifecycle(t *testing.T) {
	room := testRoom()
	room.Property.BookingMode = model.ModeInquiry
	store := newMemStore(room)
	svc := newTestService(store, &recorder{})
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-10", "2024-06-12", 1))
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		name    string
		op      func(context.Context, string) (*model.Booking, error)
		want    model.BookingStatus
		wantErr error
	}{
		{"check in before confirming", svc.CheckIn, "", apperror.ErrInvalidTransition},
		{"no-show while pending", svc.MarkNoShow, "", apperror.ErrInvalidTransition},
		{"confirm", svc.Confirm, model.StatusConfirmed, nil},
		{"confirm twice", svc.Confirm, "", apperror.ErrInvalidTransition},
		{"check in", svc.CheckIn, model.StatusCheckedIn, nil},
		{"check out", svc.CheckOut, model.StatusCheckedOut, nil},
		{"cancel after check-out", svc.Cancel, "", apperror.ErrInvalidTransition},
	}
	for _, st := range steps {
		got, err := st.op(ctx, b.ID)
		if !errors.Is(err, st.wantErr) {
			t.Fatalf("%s: error = %v, want %v", st.name, err, st.wantErr)
		}
		if st.wantErr == nil && got.Status != st.want {
			t.Fatalf("%s: status = %s, want %s", st.name, got.Status, st.want)
		}
	}
	svc.Wait()

	// Checked-out stays keep their nights.
	if _, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-11", "2024-06-12", 1)); !errors.Is(err, apperror.ErrDatesUnavailable) {
		t.Errorf("booking over a checked-out stay: error = %v", err)
	}
}

func TestNoShowReleasesNights(t *testing.T) {
	store := newMemStore(testRoom())
	svc := newTestService(store, &recorder{})
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-10", "2024-06-12", 1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkNoShow(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	ok, err := svc.IsAvailable(ctx, "room-1", b.Range())
	if err != nil || !ok {
		t.Errorf("IsAvailable() after no-show = %v, %v", ok, err)
	}
	svc.Wait()
}

func TestQuote(t *testing.T) {
	room := testRoom()
	room.Property.MinNights = 2
	svc := newTestService(newMemStore(room), &recorder{})
	ctx := context.Background()

	r, _ := model.ParseDateRange("2024-06-10", "2024-06-17")
	p, err := svc.Quote(ctx, "room-1", r)
	if err != nil {
		t.Fatal(err)
	}
	if p.Total != 650 {
		t.Errorf("Quote() total = %d, want 650", p.Total)
	}

	short, _ := model.ParseDateRange("2024-06-10", "2024-06-11")
	if _, err := svc.Quote(ctx, "room-1", short); !errors.Is(err, apperror.ErrMinNightsNotMet) {
		t.Errorf("Quote(1 night) error = %v", err)
	}
	if _, err := svc.Quote(ctx, "room-9", r); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Quote(unknown) error = %v", err)
	}
}

func TestCalendarShowsBookingsAndBlocks(t *testing.T) {
	store := newMemStore(testRoom())
	svc := newTestService(store, &recorder{})
	ctx := context.Background()

	if _, err := svc.CreateBooking(ctx, bookingReq("room-1", "2024-06-10", "2024-06-11", 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateBlock(ctx, model.CreateBlockRequest{PropertyID: "prop-1", From: "2024-06-11", To: "2024-06-12", Reason: "manual"}); err != nil {
		t.Fatal(err)
	}
	svc.Wait()

	r, _ := model.ParseDateRange("2024-06-10", "2024-06-13")
	days, err := svc.Calendar(ctx, "room-1", r)
	if err != nil {
		t.Fatal(err)
	}
	want := []availability.DayStatus{availability.DayBooked, availability.DayBlocked, availability.DayAvailable}
	for i, d := range days {
		if d.Status != want[i] {
			t.Errorf("%s = %s, want %s", d.Date, d.Status, want[i])
		}
	}
}
