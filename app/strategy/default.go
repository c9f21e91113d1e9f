package strategy

import (
	"context"

	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
)

const DefaultCode = "default"

// DefaultStrategy prices a variant as a monthly plan: the first month is collected at
// checkout and recurring charges start on the first day of the following month.
type DefaultStrategy struct{}

func NewDefaultStrategy() *DefaultStrategy {
	return &DefaultStrategy{}
}

func (s *DefaultStrategy) Code() string { return DefaultCode }

func (s *DefaultStrategy) DefineSubscription(_ context.Context, rc RequestContext, line OrderLine) (*Subscription, error) {
	base, err := lineBasePrice(line)
	if err != nil {
		return nil, err
	}
	return s.calculate(rc, line.Variant, base, nil)
}

func (s *DefaultStrategy) PreviewSubscription(_ context.Context, rc RequestContext, variant Variant, inputs *CustomInputs) (*Subscription, error) {
	base, err := lineBasePrice(OrderLine{Variant: variant, Quantity: 1})
	if err != nil {
		return nil, err
	}
	return s.calculate(rc, variant, base, inputs)
}

func (s *DefaultStrategy) calculate(rc RequestContext, variant Variant, base int64, inputs *CustomInputs) (*Subscription, error) {
	schedule, err := pricing.NewSchedule(pricing.ScheduleParams{
		BillingInterval: pricing.IntervalMonth,
		BillingCount:    1,
		StartMoment:     pricing.EndOfBillingInterval,
		Downpayment:     base,
		PaidUpFront:     true,
		AutoRenew:       true,
	})
	if err != nil {
		return nil, err
	}

	in := pricing.Input{
		VariantID:        variant.ID,
		BasePrice:        base,
		PriceIncludesTax: variant.ListPriceIncludesTax,
		Schedule:         schedule,
		ReferenceNow:     rc.now(),
	}
	if inputs != nil {
		in.StartDateOverride = inputs.StartDate
		in.Discounts = inputs.Discounts
	}

	b, err := pricing.Calculate(in)
	if err != nil {
		return nil, err
	}
	return FromBreakdown(b), nil
}
