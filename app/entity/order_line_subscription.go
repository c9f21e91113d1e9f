package entity

import "time"

type AppliedDiscount struct {
	ActionCode string            `json:"action_code"`
	Args       map[string]string `json:"args"`
}

type OrderLineSubscription struct {
	ID uint64

	ChannelToken string
	OrderCode    string
	OrderLineID  string
	VariantID    string
	StrategyCode string
	Quantity     int32

	SubscriptionIDs []string
	CorrelationHash string

	PriceIncludesTax        bool
	AmountDueNow            int64
	OriginalRecurringAmount int64
	RecurringAmount         int64
	FirstRecurringAmount    int64
	Interval                *string
	IntervalCount           *int32
	StartDate               *time.Time
	EndDate                 *time.Time
	AutoRenew               bool

	Discounts []AppliedDiscount

	CreatedAt time.Time
	UpdatedAt time.Time
}
