package entity

import "time"

type WebhookEventKind string

const (
	EventChargeSucceeded WebhookEventKind = "charge_succeeded"
	EventChargeFailed    WebhookEventKind = "charge_failed"
	EventRenewalStarted  WebhookEventKind = "renewal_started"
	EventCanceled        WebhookEventKind = "canceled"
	EventUnknown         WebhookEventKind = "unknown"
)

type WebhookMetadata struct {
	OrderCode         string
	ChannelToken      string
	PaymentMethodCode string
	Amount            *int64
}

// WebhookEvent is a provider event normalized for reconciliation.
type WebhookEvent struct {
	ID      string
	Type    string
	Kind    WebhookEventKind
	Created time.Time

	Metadata    WebhookMetadata
	LineAmounts []int64

	ProviderSubscriptionID *string

	Payload []byte
}

// ChargedAmount is the metadata amount, or the sum of line amounts for recurring
// invoices. ok is false when the event carries neither.
func (e *WebhookEvent) ChargedAmount() (amount int64, ok bool) {
	if e.Metadata.Amount != nil {
		return *e.Metadata.Amount, true
	}
	if len(e.LineAmounts) == 0 {
		return 0, false
	}
	for _, line := range e.LineAmounts {
		amount += line
	}
	return amount, true
}
