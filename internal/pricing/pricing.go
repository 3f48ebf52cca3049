// Package pricing computes deterministic price breakdowns for stays. All
// arithmetic is on integer minor currency units.
package pricing

import (
	"math/bits"

	"github.com/Shivanand-hulikatti/stay-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
)

const (
	// WeeklyMinNights is the shortest stay that earns the weekly discount.
	WeeklyMinNights = 7
	// MonthlyMinNights is the shortest stay that earns the monthly discount.
	MonthlyMinNights = 28

	// MaxAmount caps a nightly rate or fee, in minor units. At this cap
	// even the longest stay ParseDate allows keeps its subtotal in int64.
	MaxAmount = 1_000_000_000_000
)

// Input holds everything a breakdown depends on.
type Input struct {
	BasePrice              int64
	Range                  model.DateRange
	CleaningFee            int64
	WeeklyDiscountPercent  int64
	MonthlyDiscountPercent int64
	Currency               string
	DepositPercent         int64 // 0 means the full total is due
}

// InputForRoom assembles the input from a room's current configuration.
func InputForRoom(room *model.Room, r model.DateRange) Input {
	return Input{
		BasePrice:              room.BasePrice,
		Range:                  r,
		CleaningFee:            room.Property.CleaningFee,
		WeeklyDiscountPercent:  room.Property.WeeklyDiscountPercent,
		MonthlyDiscountPercent: room.Property.MonthlyDiscountPercent,
		Currency:               room.Currency,
		DepositPercent:         room.Property.DepositPercent,
	}
}

// ComputeBreakdown returns the price of a stay. It is a pure function of
// its input.
//
// The discount tier is the highest one the stay qualifies for; tiers never
// stack. The discount is rounded half up to the minor unit.
func ComputeBreakdown(in Input) (model.PriceBreakdown, error) {
	if err := in.Range.Validate(); err != nil {
		return model.PriceBreakdown{}, err
	}
	nights := in.Range.Nights()
	if nights <= 0 {
		return model.PriceBreakdown{}, apperror.Validation("stay must be at least one night")
	}
	if err := in.validate(); err != nil {
		return model.PriceBreakdown{}, err
	}

	subtotal := in.BasePrice * int64(nights)

	tier, pct := model.TierNone, int64(0)
	switch {
	case nights >= MonthlyMinNights:
		tier, pct = model.TierMonthly, in.MonthlyDiscountPercent
	case nights >= WeeklyMinNights:
		tier, pct = model.TierWeekly, in.WeeklyDiscountPercent
	}
	if pct == 0 {
		tier = model.TierNone
	}
	discount := percentOf(subtotal, pct)
	total := subtotal - discount + in.CleaningFee

	depositPct := in.DepositPercent
	if depositPct == 0 {
		depositPct = 100
	}

	return model.PriceBreakdown{
		Nights:          nights,
		PricePerNight:   in.BasePrice,
		Subtotal:        subtotal,
		DiscountTier:    tier,
		DiscountPercent: pct,
		DiscountAmount:  discount,
		CleaningFee:     in.CleaningFee,
		Total:           total,
		Currency:        in.Currency,
		DepositPercent:  depositPct,
		DepositAmount:   Deposit(total, depositPct),
	}, nil
}

// Deposit is the share of total due up front. pct 0 means 100.
func Deposit(total, pct int64) int64 {
	if pct == 0 || pct >= 100 {
		return total
	}
	return percentOf(total, pct)
}

// percentOf returns amount*pct/100 rounded half up. amount is never
// negative and pct is in [0,100], so the quotient fits in int64 even when
// the product does not.
func percentOf(amount, pct int64) int64 {
	hi, lo := bits.Mul64(uint64(amount), uint64(pct))
	lo, carry := bits.Add64(lo, 50, 0)
	q, _ := bits.Div64(hi+carry, lo, 100)
	return int64(q)
}

func (in Input) validate() error {
	switch {
	case in.BasePrice < 0 || in.BasePrice > MaxAmount:
		return apperror.Validation("base price must be between 0 and %d", int64(MaxAmount))
	case in.CleaningFee < 0 || in.CleaningFee > MaxAmount:
		return apperror.Validation("cleaning fee must be between 0 and %d", int64(MaxAmount))
	case !validPercent(in.WeeklyDiscountPercent):
		return apperror.Validation("weekly discount must be between 0 and 100")
	case !validPercent(in.MonthlyDiscountPercent):
		return apperror.Validation("monthly discount must be between 0 and 100")
	case !validPercent(in.DepositPercent):
		return apperror.Validation("deposit percent must be between 0 and 100")
	case len(in.Currency) != 3:
		return apperror.Validation("currency must be a 3-letter ISO code")
	}
	return nil
}

func validPercent(p int64) bool {
	return p >= 0 && p <= 100
}
