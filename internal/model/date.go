package model

import (
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
)

// DateLayout is the ISO-8601 calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time of day and no zone. The zero value
// is the "unset" date.
type Date struct {
	t time.Time // always midnight UTC
}

// NewDate returns the date y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date t falls on in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// MinYear is the earliest year ParseDate accepts. Year 1 would collide with
// the unset date.
const MinYear = 1900

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	if t.Year() < MinYear {
		return Date{}, fmt.Errorf("date %q is out of range: year must be %d or later", s, MinYear)
	}
	return Date{t: t}, nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the whole number of days from d to o (negative when o
// is earlier). Both dates are UTC midnights so the difference is exact.
// time.Duration tops out near 292 years, so this works in Unix seconds.
func (d Date) DaysUntil(o Date) int {
	return int((o.t.Unix() - d.t.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is the half-open interval [CheckIn, CheckOut) of nights.
type DateRange struct {
	CheckIn  Date `json:"from"`
	CheckOut Date `json:"to"`
}

// NewDateRange builds a range and validates it.
func NewDateRange(checkIn, checkOut Date) (DateRange, error) {
	r := DateRange{CheckIn: checkIn, CheckOut: checkOut}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// ParseDateRange parses both ends from wire strings.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return DateRange{}, apperror.Validation("checkIn: %v", err)
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return DateRange{}, apperror.Validation("checkOut: %v", err)
	}
	return NewDateRange(in, out)
}

// Validate rejects unset ends and zero- or negative-night ranges.
func (r DateRange) Validate() error {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return apperror.Validation("check-in and check-out dates are required")
	}
	if !r.CheckIn.Before(r.CheckOut) {
		return apperror.Validation("check-out %s must be after check-in %s", r.CheckOut, r.CheckIn)
	}
	return nil
}

// Nights is the number of nights in the range.
func (r DateRange) Nights() int {
	return r.CheckIn.DaysUntil(r.CheckOut)
}

// Overlaps reports whether r and o share at least one night. Ranges that
// only touch (one's check-out equals the other's check-in) do not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

// Contains reports whether the night starting on d is inside r.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// Days yields the first date of each night of r, in order.
func (r DateRange) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.CheckIn, r.CheckOut)
}
