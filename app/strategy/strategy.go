package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
)

var (
	ErrStrategyNotSupported = errors.New("subscription strategy is not supported")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrInvalidOrderLine     = errors.New("invalid order line")
)

// RequestContext carries the caller's channel, locale and tax zone. Strategies may
// read it but the core treats it as opaque.
type RequestContext struct {
	ChannelToken string
	LanguageCode string
	TaxZone      string
	Now          time.Time
}

func (rc RequestContext) now() time.Time {
	if rc.Now.IsZero() {
		return time.Now().UTC()
	}
	return rc.Now
}

type Variant struct {
	ID                   string
	ListPrice            int64
	ListPriceIncludesTax bool
	ScheduleID           uint64
}

type OrderLine struct {
	ID        string
	OrderCode string
	Variant   Variant
	Quantity  int32
}

// CustomInputs overrides strategy defaults at preview time. Every field is optional.
type CustomInputs struct {
	StartDate *time.Time
	Discounts []pricing.Discounter
}

type OneTimePayment struct {
	PriceIncludesTax bool
	AmountDueNow     int64
}

type RecurringPayment struct {
	PriceIncludesTax bool
	Amount           int64
	Interval         pricing.Interval
	IntervalCount    int
	StartDate        time.Time
	EndDate          *time.Time
}

// Subscription is the resolved pricing of one line: a one-time part, a recurring part,
// or both. Breakdown keeps the full calculation for display and persistence.
type Subscription struct {
	OneTime   *OneTimePayment
	Recurring *RecurringPayment
	Breakdown *pricing.Breakdown
}

type Strategy interface {
	Code() string
	DefineSubscription(ctx context.Context, rc RequestContext, line OrderLine) (*Subscription, error)
	PreviewSubscription(ctx context.Context, rc RequestContext, variant Variant, inputs *CustomInputs) (*Subscription, error)
}

// FromBreakdown projects a breakdown onto the one-time/recurring union.
func FromBreakdown(b *pricing.Breakdown) *Subscription {
	sub := &Subscription{Breakdown: b}
	if b.AmountDueNow > 0 {
		sub.OneTime = &OneTimePayment{PriceIncludesTax: b.PricesIncludeTax, AmountDueNow: b.AmountDueNow}
	}
	if b.OriginalRecurringPrice > 0 {
		sub.Recurring = &RecurringPayment{
			PriceIncludesTax: b.PricesIncludeTax,
			Amount:           b.RecurringPrice,
			Interval:         b.Interval,
			IntervalCount:    b.IntervalCount,
			StartDate:        b.SubscriptionStartDate,
			EndDate:          b.SubscriptionEndDate,
		}
	}
	if sub.OneTime == nil && sub.Recurring == nil {
		sub.OneTime = &OneTimePayment{PriceIncludesTax: b.PricesIncludeTax}
	}
	return sub
}

func lineBasePrice(line OrderLine) (int64, error) {
	if line.Quantity < 1 {
		return 0, fmt.Errorf("%w: quantity must be >= 1", ErrInvalidOrderLine)
	}
	if line.Variant.ListPrice < 0 {
		return 0, fmt.Errorf("%w: list price must be >= 0", ErrInvalidOrderLine)
	}
	return line.Variant.ListPrice * int64(line.Quantity), nil
}
