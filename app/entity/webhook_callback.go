package entity

import "time"

const (
	WebhookCallbackProcessed    int32 = 10
	WebhookCallbackRejected     int32 = 20
	WebhookCallbackUnresolved   int32 = 30
	WebhookCallbackRetryPending int32 = 40
	WebhookCallbackFailed       int32 = 50
)

type WebhookCallback struct {
	ID uint64

	SubscriptionID *uint64

	Provider    string
	EventID     *string
	OrderCode   *string
	Signature   string
	PayloadJSON string
	Status      int32
	Attempts    int32
	NextAt      *time.Time
	Error       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
