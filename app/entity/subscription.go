package entity

import "time"

type SubscriptionState string

const (
	StatePendingActivation SubscriptionState = "pending_activation"
	StateActive            SubscriptionState = "active"
	StateRenewing          SubscriptionState = "renewing"
	StatePaymentFailed     SubscriptionState = "payment_failed"
	StateCanceled          SubscriptionState = "canceled"
)

// Subscription is the lifecycle record of one order. Amounts are the sums over the
// order's subscription lines.
type Subscription struct {
	ID uint64

	ChannelToken      string
	OrderCode         string
	PaymentMethodCode string

	State SubscriptionState

	AmountDueNow         int64
	FirstRecurringAmount int64
	RecurringAmount      int64
	CyclesPaid           int32
	AutoRenew            bool

	ProviderSubscriptionID *string
	LastEventID            *string
	LastEventCreated       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExpectedChargeAmount returns what the next successful charge must carry: the amount
// due at checkout, then the first recurring charge, then the regular recurring amount.
// Orders with nothing due at checkout start directly with the first recurring charge.
func (s *Subscription) ExpectedChargeAmount() int64 {
	cycle := s.CyclesPaid
	if s.AmountDueNow == 0 {
		cycle++
	}
	switch cycle {
	case 0:
		return s.AmountDueNow
	case 1:
		return s.FirstRecurringAmount
	default:
		return s.RecurringAmount
	}
}
