package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/events"
	"github.com/vibast-solutions/ms-go-subscriptions/app/lock"
	"github.com/vibast-solutions/ms-go-subscriptions/app/metrics"
	"github.com/vibast-solutions/ms-go-subscriptions/app/provider"
	"github.com/vibast-solutions/ms-go-subscriptions/app/repository"
	"github.com/vibast-solutions/ms-go-subscriptions/config"
)

const (
	defaultBatchSize       = int32(100)
	defaultLedgerRetention = 30 * 24 * time.Hour
	defaultRetryInterval   = 30 * time.Second
)

type handleWebhookRequest interface {
	GetRequestId() string
	GetProvider() string
	GetSignature() string
	GetPayload() []byte
}

type webhookSubscriptionRepository interface {
	FindByOrder(ctx context.Context, channelToken, orderCode string) (*entity.Subscription, error)
}

type ledgerRepository interface {
	Exists(ctx context.Context, eventID string, since time.Time) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int32) (int64, error)
}

type webhookCallbackRepository interface {
	Create(ctx context.Context, callback *entity.WebhookCallback) error
	Update(ctx context.Context, callback *entity.WebhookCallback) error
	ListDueRetry(ctx context.Context, now time.Time, limit int32) ([]*entity.WebhookCallback, error)
}

type transitionStore interface {
	ApplyTransition(ctx context.Context, transition repository.Transition) error
}

// HandleResult describes what one webhook event did to its order.
type HandleResult struct {
	Outcome        string
	Reason         string
	EventID        string
	OrderCode      string
	SubscriptionID uint64
	From           entity.SubscriptionState
	To             entity.SubscriptionState
}

type WebhookService struct {
	providers        *provider.Registry
	subscriptionRepo webhookSubscriptionRepository
	ledgerRepo       ledgerRepository
	callbackRepo     webhookCallbackRepository
	transitions      transitionStore
	locker           lock.Locker
	publisher        events.Publisher
	observer         metrics.Observer
	cfg              config.WebhooksConfig
	logger           logrus.FieldLogger
	now              func() time.Time
}

func NewWebhookService(
	providers *provider.Registry,
	subscriptionRepo webhookSubscriptionRepository,
	ledgerRepo ledgerRepository,
	callbackRepo webhookCallbackRepository,
	transitions transitionStore,
	locker lock.Locker,
	publisher events.Publisher,
	observer metrics.Observer,
	cfg config.WebhooksConfig,
	logger logrus.FieldLogger,
) *WebhookService {
	if observer == nil {
		observer = metrics.Nop()
	}
	if cfg.LedgerRetention <= 0 {
		cfg.LedgerRetention = defaultLedgerRetention
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	return &WebhookService{
		providers:        providers,
		subscriptionRepo: subscriptionRepo,
		ledgerRepo:       ledgerRepo,
		callbackRepo:     callbackRepo,
		transitions:      transitions,
		locker:           locker,
		publisher:        publisher,
		observer:         observer,
		cfg:              cfg,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Ingest verifies a raw provider webhook, reconciles it and records the delivery.
// Unresolvable events are acknowledged; events that could not get the order lock are
// stored for the retry job.
func (s *WebhookService) Ingest(ctx context.Context, req handleWebhookRequest) (*HandleResult, error) {
	start := time.Now()
	providerCode := strings.ToLower(strings.TrimSpace(req.GetProvider()))

	prov, err := s.providers.Get(providerCode)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	event, err := prov.VerifyAndParseWebhook(ctx, req.GetPayload(), strings.TrimSpace(req.GetSignature()))
	if err != nil {
		s.persistCallback(ctx, req, nil, nil, entity.WebhookCallbackRejected, fmt.Sprintf("webhook validation failed: %v", err))
		s.observer.RecordWebhook(OutcomeRejected, time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrWebhookRejected, err)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"provider":   providerCode,
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_code": event.Metadata.OrderCode,
		"request_id": req.GetRequestId(),
	})

	result, err := s.HandleEvent(ctx, event)
	switch {
	case errors.Is(err, ErrOrderLocked):
		cb := s.newCallback(req, event, nil, entity.WebhookCallbackRetryPending, err.Error())
		next := s.now().Add(s.cfg.RetryInterval)
		cb.Attempts = 1
		cb.NextAt = &next
		if createErr := s.callbackRepo.Create(ctx, cb); createErr != nil {
			return nil, createErr
		}
		logger.Info("webhook requeued, order is locked")
		return &HandleResult{Outcome: OutcomeRequeued, Reason: err.Error(), EventID: event.ID, OrderCode: event.Metadata.OrderCode}, nil

	case errors.Is(err, ErrUnresolvableWebhook):
		s.persistCallback(ctx, req, event, nil, entity.WebhookCallbackUnresolved, err.Error())
		logger.WithError(err).Warn("webhook could not be correlated")
		return &HandleResult{Outcome: OutcomeUnresolvable, Reason: err.Error(), EventID: event.ID, OrderCode: event.Metadata.OrderCode}, nil

	case err != nil:
		return nil, err
	}

	var subscriptionID *uint64
	if result.SubscriptionID > 0 {
		id := result.SubscriptionID
		subscriptionID = &id
	}
	if err := s.callbackRepo.Create(ctx, s.newCallback(req, event, subscriptionID, entity.WebhookCallbackProcessed, "")); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{"outcome": result.Outcome, "from": result.From, "to": result.To}).Info("webhook reconciled")
	return result, nil
}

// HandleEvent reconciles one verified event under the order lock. The ledger entry,
// the record update and its event log are committed together.
func (s *WebhookService) HandleEvent(ctx context.Context, event *entity.WebhookEvent) (result *HandleResult, err error) {
	start := time.Now()
	defer func() {
		outcome := "error"
		switch {
		case err == nil:
			outcome = result.Outcome
		case errors.Is(err, ErrUnresolvableWebhook):
			outcome = OutcomeUnresolvable
		case errors.Is(err, ErrOrderLocked):
			outcome = OutcomeRequeued
		}
		s.observer.RecordWebhook(outcome, time.Since(start))
	}()

	result = &HandleResult{EventID: event.ID, OrderCode: event.Metadata.OrderCode}

	seen, err := s.ledgerRepo.Exists(ctx, event.ID, s.ledgerCutoff())
	if err != nil {
		return nil, err
	}
	if seen {
		result.Outcome = OutcomeAlreadyProcessed
		return result, nil
	}

	if event.Kind == entity.EventUnknown || event.Kind == "" {
		result.Outcome = OutcomeIgnored
		result.Reason = "unhandled event type " + event.Type
		return result, nil
	}

	channelToken := strings.TrimSpace(event.Metadata.ChannelToken)
	orderCode := strings.TrimSpace(event.Metadata.OrderCode)
	if channelToken == "" || orderCode == "" {
		return nil, fmt.Errorf("%w: event %s has no order metadata", ErrUnresolvableWebhook, event.ID)
	}

	lockStart := time.Now()
	release, err := s.locker.Acquire(ctx, lock.OrderKey(channelToken, orderCode))
	s.observer.RecordLockWait(time.Since(lockStart), err)
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrOrderLocked, orderCode)
		}
		return nil, err
	}
	defer release()

	// A concurrent delivery may have committed while we waited for the lock.
	if seen, err = s.ledgerRepo.Exists(ctx, event.ID, s.ledgerCutoff()); err != nil {
		return nil, err
	}
	if seen {
		result.Outcome = OutcomeAlreadyProcessed
		return result, nil
	}

	sub, err := s.subscriptionRepo.FindByOrder(ctx, channelToken, orderCode)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: no subscription for order %s", ErrUnresolvableWebhook, orderCode)
	}
	paymentMethod := strings.TrimSpace(event.Metadata.PaymentMethodCode)
	if paymentMethod != "" && sub.PaymentMethodCode != "" && !strings.EqualFold(paymentMethod, sub.PaymentMethodCode) {
		return nil, fmt.Errorf("%w: payment method %s does not match order %s", ErrUnresolvableWebhook, paymentMethod, orderCode)
	}

	result.SubscriptionID = sub.ID
	result.From = sub.State
	result.To = sub.State

	decision := decideTransition(sub, event)
	logger := s.logger.WithFields(logrus.Fields{"event_id": event.ID, "order_code": orderCode, "subscription_id": sub.ID})
	if decision.amountUnknown {
		logger.Warn("charge amount missing from webhook, skipping amount validation")
	}

	now := s.now()
	tx := repository.Transition{
		Ledger: &entity.ProcessedEvent{OrderCode: orderCode, EventID: event.ID, ProcessedAt: now},
	}

	var updated *entity.Subscription
	if decision.outcome == OutcomeApplied {
		next := *sub
		next.State = decision.to
		next.CyclesPaid = decision.cycles
		eventID := event.ID
		created := event.Created
		next.LastEventID = &eventID
		next.LastEventCreated = &created
		if event.ProviderSubscriptionID != nil {
			providerSubscriptionID := *event.ProviderSubscriptionID
			next.ProviderSubscriptionID = &providerSubscriptionID
		}
		next.UpdatedAt = now
		updated = &next

		oldState := sub.State
		payload := string(event.Payload)
		tx.Subscription = updated
		tx.Event = &entity.SubscriptionEvent{
			EventType:       decision.eventType,
			OldState:        &oldState,
			NewState:        updated.State,
			ProviderEventID: &eventID,
			PayloadJSON:     &payload,
			CreatedAt:       now,
		}
	}

	if err := s.transitions.ApplyTransition(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrEventAlreadyProcessed) {
			result.Outcome = OutcomeAlreadyProcessed
			return result, nil
		}
		return nil, err
	}

	result.Outcome = decision.outcome
	result.Reason = decision.reason
	if updated == nil {
		return result, nil
	}

	result.To = updated.State
	if decision.eventType == eventTypeAmountMismatch {
		logger.WithField("expected", sub.ExpectedChargeAmount()).Warn("charged amount does not match the subscription")
	}
	if result.From != result.To {
		s.observer.RecordTransition(string(result.From), string(result.To))
		msg := events.NewLifecycleMessage(updated, result.From, decision.eventType, event.ID, now)
		if err := events.PublishLifecycle(ctx, s.publisher, msg); err != nil {
			logger.WithError(err).Warn("failed to publish lifecycle message")
		}
	}

	return result, nil
}

func (s *WebhookService) ledgerCutoff() time.Time {
	return s.now().Add(-s.cfg.LedgerRetention)
}

func (s *WebhookService) batchSize() int32 {
	if s.cfg.JobBatchSize > 0 {
		return s.cfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *WebhookService) newCallback(
	req handleWebhookRequest,
	event *entity.WebhookEvent,
	subscriptionID *uint64,
	status int32,
	reason string,
) *entity.WebhookCallback {
	now := s.now()
	cb := &entity.WebhookCallback{
		SubscriptionID: subscriptionID,
		Provider:       strings.ToLower(strings.TrimSpace(req.GetProvider())),
		Signature:      strings.TrimSpace(req.GetSignature()),
		PayloadJSON:    string(req.GetPayload()),
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if event != nil {
		eventID := event.ID
		cb.EventID = &eventID
		if orderCode := strings.TrimSpace(event.Metadata.OrderCode); orderCode != "" {
			cb.OrderCode = &orderCode
		}
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		trimmed := truncate(reason, 1024)
		cb.Error = &trimmed
	}
	return cb
}

func (s *WebhookService) persistCallback(
	ctx context.Context,
	req handleWebhookRequest,
	event *entity.WebhookEvent,
	subscriptionID *uint64,
	status int32,
	reason string,
) {
	if err := s.callbackRepo.Create(ctx, s.newCallback(req, event, subscriptionID, status, reason)); err != nil {
		s.logger.WithError(err).WithField("provider", req.GetProvider()).Warn("failed to persist webhook callback")
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
