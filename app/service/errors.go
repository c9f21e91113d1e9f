package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrStrategyUnsupported  = errors.New("subscription strategy is not supported")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrScheduleExists       = errors.New("schedule already exists")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrOrderLineNotFound    = errors.New("order line subscription not found")
	ErrPricingUnavailable   = errors.New("pricing is temporarily unavailable")
	ErrPromotionUnsupported = errors.New("promotion action is not supported")
	ErrProviderUnsupported  = errors.New("provider is not supported")
	ErrWebhookRejected      = errors.New("webhook rejected")
	ErrUnresolvableWebhook  = errors.New("webhook cannot be correlated to a subscription")
	ErrInvalidState         = errors.New("invalid subscription state")
	ErrOrderLocked          = errors.New("order is locked by another webhook")
)
