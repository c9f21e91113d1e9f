package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Discounter reduces a recurring price. Implementations must be pure.
type Discounter interface {
	DiscountOnSubscription(currentRecurringPrice int64) int64
}

type Input struct {
	VariantID         string
	BasePrice         int64
	PriceIncludesTax  bool
	Schedule          *Schedule
	ReferenceNow      time.Time
	StartDateOverride *time.Time
	Discounts         []Discounter

	// ForbidMixedDownpayment rejects a non-zero downpayment on schedules that are not
	// paid up front.
	ForbidMixedDownpayment bool
}

type Breakdown struct {
	VariantID              string
	PricesIncludeTax       bool
	Downpayment            int64
	TotalProratedAmount    int64
	ProratedDays           int
	DayRate                decimal.Decimal
	ProrationResidual      int64
	RecurringPrice         int64
	OriginalRecurringPrice int64
	FirstRecurringAmount   int64
	Interval               Interval
	IntervalCount          int
	AmountDueNow           int64
	SubscriptionStartDate  time.Time
	SubscriptionEndDate    *time.Time
	AutoRenew              bool
}

// Calculate turns a schedule, a base price and a reference moment into the full
// payment breakdown. It has no side effects and is safe for concurrent use.
func Calculate(in Input) (*Breakdown, error) {
	s := in.Schedule
	if s == nil {
		return nil, fmt.Errorf("%w: schedule is required", ErrInvalidSchedule)
	}
	if in.BasePrice < 0 {
		return nil, fmt.Errorf("%w: base price must be >= 0", ErrInvalidSchedule)
	}
	if in.ForbidMixedDownpayment && !s.PaidUpFront() && s.Downpayment() > 0 {
		return nil, fmt.Errorf("%w: downpayment requires a paid-up-front schedule", ErrInvalidSchedule)
	}

	now := in.ReferenceNow
	if now.IsZero() {
		now = time.Now()
	}

	naturalStart, err := resolveStartDate(s, now)
	if err != nil {
		return nil, err
	}
	start := naturalStart
	if in.StartDateOverride != nil {
		start = *in.StartDateOverride
	}

	var end *time.Time
	if !s.OpenEnded() {
		e := AddInterval(naturalStart, s.DurationInterval(), s.DurationCount())
		if e.Before(start) {
			return nil, fmt.Errorf("%w: start=%s end=%s", ErrNegativeDuration, start.Format(time.RFC3339), e.Format(time.RFC3339))
		}
		end = &e
	}

	proratedDays := 0
	if s.UseProration() && !start.Equal(now) {
		proratedDays = max(0, DaysBetween(now, start))
	}

	daysInInterval := DaysInInterval(s.BillingInterval(), s.BillingCount(), now)
	dayRate := DayRate(in.BasePrice, daysInInterval)
	totalProrated := ProratedAmount(dayRate, proratedDays)
	residual := exactProration(in.BasePrice, proratedDays, daysInInterval) - totalProrated

	amountDueNow := s.Downpayment()
	if s.PaidUpFront() {
		amountDueNow += totalProrated
	}

	recurring := applyDiscounts(in.BasePrice, in.Discounts)

	firstRecurring := recurring + residual
	if !s.PaidUpFront() {
		firstRecurring += totalProrated
	}

	return &Breakdown{
		VariantID:              in.VariantID,
		PricesIncludeTax:       in.PriceIncludesTax,
		Downpayment:            s.Downpayment(),
		TotalProratedAmount:    totalProrated,
		ProratedDays:           proratedDays,
		DayRate:                dayRate,
		ProrationResidual:      residual,
		RecurringPrice:         recurring,
		OriginalRecurringPrice: in.BasePrice,
		FirstRecurringAmount:   floorZero(firstRecurring),
		Interval:               s.BillingInterval(),
		IntervalCount:          s.BillingCount(),
		AmountDueNow:           amountDueNow,
		SubscriptionStartDate:  start,
		SubscriptionEndDate:    end,
		AutoRenew:              s.AutoRenew(),
	}, nil
}

// ApplyDiscounts recomputes the recurring figures of an existing breakdown against its
// original recurring price. The amount due now is never touched.
func (b *Breakdown) ApplyDiscounts(discounts ...Discounter) {
	previous := b.RecurringPrice
	b.RecurringPrice = applyDiscounts(b.OriginalRecurringPrice, discounts)
	b.FirstRecurringAmount = floorZero(b.FirstRecurringAmount - previous + b.RecurringPrice)
}

func applyDiscounts(price int64, discounts []Discounter) int64 {
	current := price
	for _, d := range discounts {
		if d == nil {
			continue
		}
		current = floorZero(current - floorZero(d.DiscountOnSubscription(current)))
	}
	return current
}

func resolveStartDate(s *Schedule, now time.Time) (time.Time, error) {
	switch s.StartMoment() {
	case StartTimeOfPurchase:
		return now, nil
	case StartFixedDate:
		fixed := s.FixedStartDate()
		if fixed == nil {
			return time.Time{}, fmt.Errorf("%w: fixed start date is missing", ErrInvalidSchedule)
		}
		if fixed.Before(now) && !s.UseProration() {
			return time.Time{}, fmt.Errorf("%w: fixed start date %s is in the past and proration is disabled", ErrAmbiguousStartDate, fixed.Format(time.DateOnly))
		}
		return *fixed, nil
	case StartOfBillingInterval:
		start, end := IntervalInstance(s.BillingInterval(), s.BillingCount(), now)
		if start.Equal(now) {
			return now, nil
		}
		return end, nil
	case EndOfBillingInterval:
		_, end := IntervalInstance(s.BillingInterval(), s.BillingCount(), now)
		return end, nil
	default:
		return time.Time{}, fmt.Errorf("%w: start moment %q is not supported", ErrInvalidSchedule, s.StartMoment())
	}
}
