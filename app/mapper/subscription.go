package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
	"github.com/vibast-solutions/ms-go-subscriptions/app/strategy"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
)

func PricingToProto(item *strategy.Subscription) *types.SubscriptionPricing {
	if item == nil {
		return nil
	}

	out := &types.SubscriptionPricing{Breakdown: BreakdownToProto(item.Breakdown)}
	if item.OneTime != nil {
		out.OneTime = &types.OneTimePayment{
			PriceIncludesTax: item.OneTime.PriceIncludesTax,
			AmountDueNow:     item.OneTime.AmountDueNow,
		}
	}
	if r := item.Recurring; r != nil {
		out.Recurring = &types.RecurringPayment{
			PriceIncludesTax: r.PriceIncludesTax,
			Amount:           r.Amount,
			Interval:         string(r.Interval),
			IntervalCount:    int32(r.IntervalCount),
			StartDate:        formatTime(r.StartDate),
			EndDate:          formatTimePtr(r.EndDate),
		}
	}
	return out
}

func BreakdownToProto(b *pricing.Breakdown) *types.PricingBreakdown {
	if b == nil {
		return nil
	}

	return &types.PricingBreakdown{
		VariantId:              b.VariantID,
		PricesIncludeTax:       b.PricesIncludeTax,
		Downpayment:            b.Downpayment,
		TotalProratedAmount:    b.TotalProratedAmount,
		ProratedDays:           int32(b.ProratedDays),
		DayRate:                b.DayRate.String(),
		ProrationResidual:      b.ProrationResidual,
		RecurringPrice:         b.RecurringPrice,
		OriginalRecurringPrice: b.OriginalRecurringPrice,
		FirstRecurringAmount:   b.FirstRecurringAmount,
		Interval:               string(b.Interval),
		IntervalCount:          int32(b.IntervalCount),
		AmountDueNow:           b.AmountDueNow,
		SubscriptionStartDate:  formatTime(b.SubscriptionStartDate),
		SubscriptionEndDate:    formatTimePtr(b.SubscriptionEndDate),
		AutoRenew:              b.AutoRenew,
	}
}

func OrderLineToProto(item *entity.OrderLineSubscription) *types.OrderLineSubscription {
	if item == nil {
		return nil
	}

	discounts := make([]*types.DiscountInput, 0, len(item.Discounts))
	for _, d := range item.Discounts {
		discounts = append(discounts, &types.DiscountInput{ActionCode: d.ActionCode, Args: cloneArgs(d.Args)})
	}

	return &types.OrderLineSubscription{
		Id:                      item.ID,
		ChannelToken:            item.ChannelToken,
		OrderCode:               item.OrderCode,
		OrderLineId:             item.OrderLineID,
		VariantId:               item.VariantID,
		StrategyCode:            item.StrategyCode,
		Quantity:                item.Quantity,
		SubscriptionIds:         append([]string{}, item.SubscriptionIDs...),
		CorrelationHash:         item.CorrelationHash,
		PriceIncludesTax:        item.PriceIncludesTax,
		AmountDueNow:            item.AmountDueNow,
		OriginalRecurringAmount: item.OriginalRecurringAmount,
		RecurringAmount:         item.RecurringAmount,
		FirstRecurringAmount:    item.FirstRecurringAmount,
		Interval:                derefString(item.Interval),
		IntervalCount:           derefInt32(item.IntervalCount),
		StartDate:               formatTimePtr(item.StartDate),
		EndDate:                 formatTimePtr(item.EndDate),
		AutoRenew:               item.AutoRenew,
		Discounts:               discounts,
		CreatedAt:               formatTime(item.CreatedAt),
		UpdatedAt:               formatTime(item.UpdatedAt),
	}
}

func OrderLinesToProto(items []*entity.OrderLineSubscription) []*types.OrderLineSubscription {
	result := make([]*types.OrderLineSubscription, 0, len(items))
	for _, item := range items {
		result = append(result, OrderLineToProto(item))
	}
	return result
}

func SubscriptionToProto(item *entity.Subscription) *types.Subscription {
	if item == nil {
		return nil
	}

	return &types.Subscription{
		Id:                     item.ID,
		ChannelToken:           item.ChannelToken,
		OrderCode:              item.OrderCode,
		PaymentMethodCode:      item.PaymentMethodCode,
		State:                  string(item.State),
		AmountDueNow:           item.AmountDueNow,
		FirstRecurringAmount:   item.FirstRecurringAmount,
		RecurringAmount:        item.RecurringAmount,
		CyclesPaid:             item.CyclesPaid,
		AutoRenew:              item.AutoRenew,
		ProviderSubscriptionId: derefString(item.ProviderSubscriptionID),
		LastEventId:            derefString(item.LastEventID),
		LastEventCreated:       formatTimePtr(item.LastEventCreated),
		CreatedAt:              formatTime(item.CreatedAt),
		UpdatedAt:              formatTime(item.UpdatedAt),
	}
}

func ScheduleToProto(item *entity.Schedule) *types.Schedule {
	if item == nil {
		return nil
	}

	return &types.Schedule{
		Id:               item.ID,
		Name:             item.Name,
		DurationInterval: derefString(item.DurationInterval),
		DurationCount:    item.DurationCount,
		BillingInterval:  item.BillingInterval,
		BillingCount:     item.BillingCount,
		StartMoment:      item.StartMoment,
		FixedStartDate:   formatTimePtr(item.FixedStartDate),
		Downpayment:      item.Downpayment,
		PaidUpFront:      item.PaidUpFront,
		UseProration:     item.UseProration,
		AutoRenew:        item.AutoRenew,
		CreatedAt:        formatTime(item.CreatedAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
}

func SchedulesToProto(items []*entity.Schedule) []*types.Schedule {
	result := make([]*types.Schedule, 0, len(items))
	for _, item := range items {
		result = append(result, ScheduleToProto(item))
	}
	return result
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}

func cloneArgs(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
