package provider

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

var (
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrSecretNotConfigured = errors.New("webhook secret is not configured")
	ErrMalformedPayload    = errors.New("malformed webhook payload")
)

// Provider turns a payment processor's native webhook envelope into a normalized event.
type Provider interface {
	Code() string
	// VerifyAndParseWebhook checks the signature header before parsing.
	VerifyAndParseWebhook(ctx context.Context, payload []byte, signature string) (*entity.WebhookEvent, error)
	// ParseWebhook parses a payload whose signature was verified at ingestion.
	ParseWebhook(payload []byte) (*entity.WebhookEvent, error)
}
