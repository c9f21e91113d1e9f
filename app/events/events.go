package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

// Publisher delivers lifecycle messages to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// LifecycleMessage announces a committed subscription state change.
type LifecycleMessage struct {
	SubscriptionID  uint64    `json:"subscription_id"`
	ChannelToken    string    `json:"channel_token"`
	OrderCode       string    `json:"order_code"`
	ProviderEventID string    `json:"provider_event_id"`
	EventType       string    `json:"event_type"`
	FromState       string    `json:"from_state"`
	ToState         string    `json:"to_state"`
	CyclesPaid      int32     `json:"cycles_paid"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewLifecycleMessage(sub *entity.Subscription, from entity.SubscriptionState, eventType, providerEventID string, occurredAt time.Time) LifecycleMessage {
	return LifecycleMessage{
		SubscriptionID:  sub.ID,
		ChannelToken:    sub.ChannelToken,
		OrderCode:       sub.OrderCode,
		ProviderEventID: providerEventID,
		EventType:       eventType,
		FromState:       string(from),
		ToState:         string(sub.State),
		CyclesPaid:      sub.CyclesPaid,
		OccurredAt:      occurredAt.UTC(),
	}
}

func (m LifecycleMessage) RoutingKey() string {
	return "subscription." + m.ToState
}

func (m LifecycleMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// PublishLifecycle encodes msg and publishes it under its state routing key.
func PublishLifecycle(ctx context.Context, publisher Publisher, msg LifecycleMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, msg.RoutingKey(), payload)
}
