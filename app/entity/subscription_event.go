package entity

import "time"

type SubscriptionEvent struct {
	ID uint64

	SubscriptionID uint64

	EventType string

	OldState *SubscriptionState
	NewState SubscriptionState

	ProviderEventID *string
	PayloadJSON     *string

	CreatedAt time.Time
}

// ProcessedEvent is a dedupe ledger entry.
type ProcessedEvent struct {
	OrderCode   string
	EventID     string
	ProcessedAt time.Time
}
