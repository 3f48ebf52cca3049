// Package model defines the core domain types for the stay booking system.
package model

import "time"

// BookingMode controls what status a new booking starts in.
type BookingMode string

const (
	// ModeInstant bookings are confirmed on creation.
	ModeInstant BookingMode = "instant"
	// ModeInquiry bookings start pending and expire if the host does not
	// confirm them in time.
	ModeInquiry BookingMode = "inquiry"
	// ModeDisabled properties accept no bookings.
	ModeDisabled BookingMode = "disabled"
)

// Property owns rooms and carries the booking rules shared by all of them.
type Property struct {
	ID                     string      `json:"id"`
	Slug                   string      `json:"slug"`
	Name                   string      `json:"name"`
	BookingMode            BookingMode `json:"bookingMode"`
	MinNights              int         `json:"minNights"`
	MaxNights              int         `json:"maxNights"` // 0 = unlimited
	CleaningFee            int64       `json:"cleaningFee"`
	WeeklyDiscountPercent  int64       `json:"weeklyDiscountPercent"`
	MonthlyDiscountPercent int64       `json:"monthlyDiscountPercent"`
	InquiryTimeoutHours    int         `json:"inquiryTimeoutHours"`
	DepositPercent         int64       `json:"depositPercent"`
	Active                 bool        `json:"active"`
}

// Room is a single bookable unit, loaded together with the current
// configuration of its property.
type Room struct {
	ID         string   `json:"id"`
	PropertyID string   `json:"propertyId"`
	Name       string   `json:"name"`
	BasePrice  int64    `json:"basePrice"` // minor units per night
	Currency   string   `json:"currency"`
	Capacity   int      `json:"capacity"`
	Active     bool     `json:"active"`
	Property   Property `json:"property"`
}

// Bookable reports whether the room currently accepts reservations.
func (r *Room) Bookable() bool {
	return r.Active && r.Property.Active && r.Property.BookingMode != ModeDisabled
}

// GuestInfo is the contact data captured with a booking.
type GuestInfo struct {
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,min=6,max=32"`
	Country         string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	SpecialRequests string `json:"specialRequests,omitempty" validate:"max=2000"`
}

// DiscountTier names which length-of-stay discount was applied.
type DiscountTier string

const (
	TierNone    DiscountTier = "none"
	TierWeekly  DiscountTier = "weekly"
	TierMonthly DiscountTier = "monthly"
)

// PriceBreakdown is the derived, non-persisted quote for a stay. All money
// values are integer minor units.
type PriceBreakdown struct {
	Nights          int          `json:"nights"`
	PricePerNight   int64        `json:"pricePerNight"`
	Subtotal        int64        `json:"subtotal"`
	DiscountTier    DiscountTier `json:"discountTier"`
	DiscountPercent int64        `json:"discountPercent"`
	DiscountAmount  int64        `json:"discountAmount"`
	CleaningFee     int64        `json:"cleaningFee"`
	Total           int64        `json:"total"`
	Currency        string       `json:"currency"`
	DepositPercent  int64        `json:"depositPercent"`
	DepositAmount   int64        `json:"depositAmount"`
}

// Booking associates a room with a date range.
type Booking struct {
	ID          string         `json:"id"`
	Code        string         `json:"bookingCode"`
	PropertyID  string         `json:"propertyId"`
	RoomID      string         `json:"unitId"`
	CheckIn     Date           `json:"checkIn"`
	CheckOut    Date           `json:"checkOut"`
	GuestCount  int            `json:"guestCount"`
	Guest       GuestInfo      `json:"guestInfo"`
	Status      BookingStatus  `json:"status"`
	Price       PriceBreakdown `json:"priceBreakdown"`
	ExpiresAt   *time.Time     `json:"expiresAt,omitempty"`
	CancelledAt *time.Time     `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Range returns the nights held by the booking.
func (b *Booking) Range() DateRange {
	return DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// BlockedRange is an administrative block (maintenance, owner use). A block
// without a RoomID covers every room of the property.
type BlockedRange struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"propertyId"`
	RoomID     *string   `json:"unitId,omitempty"`
	Range      DateRange `json:"range"`
	Reason     string    `json:"reason"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// OccupancyKind distinguishes why a range is unavailable.
type OccupancyKind string

const (
	OccupiedByBooking OccupancyKind = "booking"
	OccupiedByBlock   OccupancyKind = "block"
)

// OccupiedRange is one range that makes a room unavailable.
type OccupiedRange struct {
	Range DateRange
	Kind  OccupancyKind
	Ref   string // booking or block id
}

// ChangeKind names a change on a room's calendar.
type ChangeKind string

const (
	ChangeBookingCreated       ChangeKind = "booking.created"
	ChangeBookingStatusChanged ChangeKind = "booking.status_changed"
	ChangeBlockCreated         ChangeKind = "block.created"
	ChangeBlockDeleted         ChangeKind = "block.deleted"
)

// ChangeEvent is published whenever a room's occupancy may have changed.
type ChangeEvent struct {
	Kind       ChangeKind    `json:"kind"`
	RoomID     string        `json:"unitId"`
	BookingID  string        `json:"bookingId,omitempty"`
	BlockID    string        `json:"blockId,omitempty"`
	Status     BookingStatus `json:"status,omitempty"`
	Range      DateRange     `json:"range"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// CreateBookingRequest is the payload for POST /bookings.
type CreateBookingRequest struct {
	UnitID     string    `json:"unitId" validate:"required,uuid"`
	CheckIn    string    `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut   string    `json:"checkOut" validate:"required,datetime=2006-01-02"`
	GuestCount int       `json:"guestCount" validate:"required,min=1,max=50"`
	GuestInfo  GuestInfo `json:"guestInfo"`
}

// CreateBlockRequest is the payload for POST /admin/blocks.
type CreateBlockRequest struct {
	PropertyID string  `json:"propertyId" validate:"required,uuid"`
	UnitID     *string `json:"unitId,omitempty" validate:"omitempty,uuid"`
	From       string  `json:"from" validate:"required,datetime=2006-01-02"`
	To         string  `json:"to" validate:"required,datetime=2006-01-02"`
	Reason     string  `json:"reason" validate:"required,oneof=maintenance owner_use manual renovation"`
	Notes      string  `json:"notes,omitempty" validate:"max=500"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BookingResult summarises the outcome of a single reservation attempt.
// Used by the concurrent booking tests.
type BookingResult struct {
	Booking *Booking
	Err     error
}
