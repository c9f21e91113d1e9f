package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/lock"
	"github.com/vibast-solutions/ms-go-subscriptions/app/repository"
)

var fixedNow = time.Date(2026, time.November, 15, 10, 0, 0, 0, time.UTC)

func orderKey(channelToken, orderCode string) string {
	return channelToken + "|" + orderCode
}

type memorySubscriptionRepo struct {
	mu     sync.Mutex
	nextID uint64
	items  map[string]*entity.Subscription
}

func newMemorySubscriptionRepo() *memorySubscriptionRepo {
	return &memorySubscriptionRepo{items: map[string]*entity.Subscription{}}
}

func (r *memorySubscriptionRepo) Upsert(_ context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := orderKey(sub.ChannelToken, sub.OrderCode)
	if existing, ok := r.items[key]; ok {
		existing.PaymentMethodCode = sub.PaymentMethodCode
		existing.AmountDueNow = sub.AmountDueNow
		existing.FirstRecurringAmount = sub.FirstRecurringAmount
		existing.RecurringAmount = sub.RecurringAmount
		existing.AutoRenew = sub.AutoRenew
		existing.UpdatedAt = sub.UpdatedAt
		sub.ID = existing.ID
		return nil
	}

	r.nextID++
	sub.ID = r.nextID
	copyItem := *sub
	r.items[key] = &copyItem
	return nil
}

func (r *memorySubscriptionRepo) FindByOrder(_ context.Context, channelToken, orderCode string) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[orderKey(channelToken, orderCode)]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *memorySubscriptionRepo) update(sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := orderKey(sub.ChannelToken, sub.OrderCode)
	existing, ok := r.items[key]
	if !ok || existing.ID != sub.ID {
		return repository.ErrSubscriptionNotFound
	}
	copyItem := *sub
	r.items[key] = &copyItem
	return nil
}

func (r *memorySubscriptionRepo) put(sub *entity.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.ID == 0 {
		r.nextID++
		sub.ID = r.nextID
	}
	copyItem := *sub
	r.items[orderKey(sub.ChannelToken, sub.OrderCode)] = &copyItem
}

func (r *memorySubscriptionRepo) get(channelToken, orderCode string) *entity.Subscription {
	item, _ := r.FindByOrder(context.Background(), channelToken, orderCode)
	return item
}

type memoryLineRepo struct {
	mu     sync.Mutex
	nextID uint64
	items  map[string]*entity.OrderLineSubscription
}

func newMemoryLineRepo() *memoryLineRepo {
	return &memoryLineRepo{items: map[string]*entity.OrderLineSubscription{}}
}

func (r *memoryLineRepo) Upsert(_ context.Context, line *entity.OrderLineSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := orderKey(line.ChannelToken, line.OrderCode) + "|" + line.OrderLineID
	if existing, ok := r.items[key]; ok {
		line.ID = existing.ID
	} else {
		r.nextID++
		line.ID = r.nextID
	}
	copyItem := *line
	copyItem.Discounts = append([]entity.AppliedDiscount(nil), line.Discounts...)
	copyItem.SubscriptionIDs = append([]string(nil), line.SubscriptionIDs...)
	r.items[key] = &copyItem
	return nil
}

func (r *memoryLineRepo) FindByOrderLine(_ context.Context, channelToken, orderCode, orderLineID string) (*entity.OrderLineSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[orderKey(channelToken, orderCode)+"|"+orderLineID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *memoryLineRepo) ListByOrder(_ context.Context, channelToken, orderCode string) ([]*entity.OrderLineSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]*entity.OrderLineSubscription, 0)
	for _, item := range r.items {
		if item.ChannelToken == channelToken && item.OrderCode == orderCode {
			copyItem := *item
			lines = append(lines, &copyItem)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

type memoryLedger struct {
	mu    sync.Mutex
	items map[string]*entity.ProcessedEvent
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{items: map[string]*entity.ProcessedEvent{}}
}

func (l *memoryLedger) Exists(_ context.Context, eventID string, since time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[eventID]
	return ok && !item.ProcessedAt.Before(since), nil
}

func (l *memoryLedger) DeleteOlderThan(_ context.Context, cutoff time.Time, limit int32) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var deleted int64
	for id, item := range l.items {
		if deleted >= int64(limit) {
			break
		}
		if item.ProcessedAt.Before(cutoff) {
			delete(l.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (l *memoryLedger) add(event *entity.ProcessedEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.items[event.EventID]; ok {
		return repository.ErrEventAlreadyProcessed
	}
	copyItem := *event
	l.items[event.EventID] = &copyItem
	return nil
}

type memoryTransitions struct {
	subs   *memorySubscriptionRepo
	ledger *memoryLedger
	events []*entity.SubscriptionEvent
	err    error
}

func (m *memoryTransitions) ApplyTransition(_ context.Context, t repository.Transition) error {
	if m.err != nil {
		return m.err
	}
	if t.Ledger != nil {
		if err := m.ledger.add(t.Ledger); err != nil {
			return err
		}
	}
	if t.Subscription != nil {
		if err := m.subs.update(t.Subscription); err != nil {
			return err
		}
	}
	if t.Event != nil {
		if t.Subscription != nil {
			t.Event.SubscriptionID = t.Subscription.ID
		}
		m.events = append(m.events, t.Event)
	}
	return nil
}

type memoryCallbacks struct {
	mu     sync.Mutex
	nextID uint64
	items  []*entity.WebhookCallback
}

func (r *memoryCallbacks) Create(_ context.Context, cb *entity.WebhookCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	cb.ID = r.nextID
	copyItem := *cb
	r.items = append(r.items, &copyItem)
	return nil
}

func (r *memoryCallbacks) Update(_ context.Context, cb *entity.WebhookCallback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, item := range r.items {
		if item.ID == cb.ID {
			copyItem := *cb
			r.items[i] = &copyItem
			return nil
		}
	}
	return repository.ErrWebhookCallbackNotFound
}

func (r *memoryCallbacks) ListDueRetry(_ context.Context, now time.Time, limit int32) ([]*entity.WebhookCallback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.WebhookCallback, 0)
	for _, item := range r.items {
		if int32(len(out)) >= limit {
			break
		}
		if item.Status == entity.WebhookCallbackRetryPending && item.NextAt != nil && !item.NextAt.After(now) {
			copyItem := *item
			out = append(out, &copyItem)
		}
	}
	return out, nil
}

func (r *memoryCallbacks) last() *entity.WebhookCallback {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) == 0 {
		return nil
	}
	return r.items[len(r.items)-1]
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type timeoutLocker struct{}

func (timeoutLocker) Acquire(context.Context, string) (func(), error) {
	return nil, lock.ErrLockTimeout
}
