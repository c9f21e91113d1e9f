package strategy

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
)

const ScheduleCode = "schedule"

// ScheduleSource loads stored schedules. A nil schedule with a nil error means not found.
type ScheduleSource interface {
	FindByID(ctx context.Context, id uint64) (*entity.Schedule, error)
}

// ScheduleStrategy prices a variant with the schedule its ScheduleID points to. The
// downpayment is per unit and scales with quantity.
type ScheduleStrategy struct {
	source                 ScheduleSource
	forbidMixedDownpayment bool
}

func NewScheduleStrategy(source ScheduleSource, forbidMixedDownpayment bool) *ScheduleStrategy {
	return &ScheduleStrategy{source: source, forbidMixedDownpayment: forbidMixedDownpayment}
}

func (s *ScheduleStrategy) Code() string { return ScheduleCode }

func (s *ScheduleStrategy) DefineSubscription(ctx context.Context, rc RequestContext, line OrderLine) (*Subscription, error) {
	base, err := lineBasePrice(line)
	if err != nil {
		return nil, err
	}
	return s.calculate(ctx, rc, line.Variant, line.Quantity, base, nil)
}

func (s *ScheduleStrategy) PreviewSubscription(ctx context.Context, rc RequestContext, variant Variant, inputs *CustomInputs) (*Subscription, error) {
	base, err := lineBasePrice(OrderLine{Variant: variant, Quantity: 1})
	if err != nil {
		return nil, err
	}
	return s.calculate(ctx, rc, variant, 1, base, inputs)
}

func (s *ScheduleStrategy) calculate(ctx context.Context, rc RequestContext, variant Variant, quantity int32, base int64, inputs *CustomInputs) (*Subscription, error) {
	if variant.ScheduleID == 0 {
		return nil, fmt.Errorf("%w: variant %q has no schedule", ErrScheduleNotFound, variant.ID)
	}
	stored, err := s.source.FindByID(ctx, variant.ScheduleID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrScheduleNotFound, variant.ScheduleID)
	}

	schedule, err := stored.Definition()
	if err != nil {
		return nil, err
	}
	if quantity > 1 && schedule.Downpayment() > 0 {
		params := schedule.Params()
		params.Downpayment *= int64(quantity)
		if schedule, err = pricing.NewSchedule(params); err != nil {
			return nil, err
		}
	}

	in := pricing.Input{
		VariantID:              variant.ID,
		BasePrice:              base,
		PriceIncludesTax:       variant.ListPriceIncludesTax,
		Schedule:               schedule,
		ReferenceNow:           rc.now(),
		ForbidMixedDownpayment: s.forbidMixedDownpayment,
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
