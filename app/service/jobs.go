package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

// RunRetryBatch re-processes webhooks that were stored after a lock timeout. Their
// signatures were verified at ingest, so payloads are only parsed here.
func (s *WebhookService) RunRetryBatch(ctx context.Context) error {
	now := s.now()
	items, err := s.callbackRepo.ListDueRetry(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, cb := range items {
		if cb == nil {
			continue
		}
		if err := s.retryCallback(ctx, cb); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *WebhookService) retryCallback(ctx context.Context, cb *entity.WebhookCallback) error {
	now := s.now()
	logger := s.logger.WithFields(logrus.Fields{"callback_id": cb.ID, "provider": cb.Provider})

	prov, err := s.providers.Get(cb.Provider)
	if err != nil {
		return s.finishCallback(ctx, cb, entity.WebhookCallbackFailed, nil, err.Error())
	}
	event, err := prov.ParseWebhook([]byte(cb.PayloadJSON))
	if err != nil {
		return s.finishCallback(ctx, cb, entity.WebhookCallbackFailed, nil, err.Error())
	}

	result, handleErr := s.HandleEvent(ctx, event)
	switch {
	case handleErr == nil:
		var subscriptionID *uint64
		if result.SubscriptionID > 0 {
			id := result.SubscriptionID
			subscriptionID = &id
		}
		logger.WithFields(logrus.Fields{"event_id": event.ID, "outcome": result.Outcome}).Info("requeued webhook reconciled")
		return s.finishCallback(ctx, cb, entity.WebhookCallbackProcessed, subscriptionID, "")

	case errors.Is(handleErr, ErrUnresolvableWebhook):
		logger.WithError(handleErr).Warn("requeued webhook could not be correlated")
		return s.finishCallback(ctx, cb, entity.WebhookCallbackUnresolved, nil, handleErr.Error())
	}

	cb.Attempts++
	trimmed := truncate(handleErr.Error(), 1024)
	cb.Error = &trimmed
	if cb.Attempts >= s.cfg.MaxAttempts {
		cb.Status = entity.WebhookCallbackFailed
		cb.NextAt = nil
		logger.WithError(handleErr).Error("requeued webhook exhausted its attempts")
	} else {
		next := now.Add(s.cfg.RetryInterval)
		cb.Status = entity.WebhookCallbackRetryPending
		cb.NextAt = &next
	}
	cb.UpdatedAt = now

	if err := s.callbackRepo.Update(ctx, cb); err != nil {
		return err
	}
	if errors.Is(handleErr, ErrOrderLocked) {
		return nil
	}
	return handleErr
}

func (s *WebhookService) finishCallback(ctx context.Context, cb *entity.WebhookCallback, status int32, subscriptionID *uint64, reason string) error {
	cb.Status = status
	cb.NextAt = nil
	if subscriptionID != nil {
		cb.SubscriptionID = subscriptionID
	}
	if reason != "" {
		trimmed := truncate(reason, 1024)
		cb.Error = &trimmed
	} else {
		cb.Error = nil
	}
	cb.UpdatedAt = s.now()
	return s.callbackRepo.Update(ctx, cb)
}

// RunPruneLedgerBatch drops ledger entries that fell out of the retention window.
func (s *WebhookService) RunPruneLedgerBatch(ctx context.Context) error {
	deleted, err := s.ledgerRepo.DeleteOlderThan(ctx, s.ledgerCutoff(), s.batchSize())
	if err != nil {
		return fmt.Errorf("prune ledger: %w", err)
	}
	s.logger.WithField("deleted", deleted).Info("ledger pruned")
	return nil
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
