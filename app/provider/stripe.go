package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

const StripeCode = "stripe"

type StripeConfig struct {
	WebhookSecret             string
	SignatureToleranceSeconds int64
}

type StripeProvider struct {
	cfg StripeConfig
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	if cfg.SignatureToleranceSeconds <= 0 {
		cfg.SignatureToleranceSeconds = 300
	}
	return &StripeProvider{cfg: cfg}
}

func (p *StripeProvider) Code() string {
	return StripeCode
}

func (p *StripeProvider) VerifyAndParseWebhook(_ context.Context, payload []byte, signature string) (*entity.WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return nil, ErrSecretNotConfigured
	}
	if !verifyStripeSignature(payload, signature, p.cfg.WebhookSecret, p.cfg.SignatureToleranceSeconds) {
		return nil, ErrInvalidSignature
	}
	return p.ParseWebhook(payload)
}

type stripeMetadata map[string]json.RawMessage

type stripeObject struct {
	ID                  string         `json:"id"`
	Subscription        interface{}    `json:"subscription"`
	Metadata            stripeMetadata `json:"metadata"`
	SubscriptionDetails struct {
		Metadata stripeMetadata `json:"metadata"`
	} `json:"subscription_details"`
	Lines struct {
		Data []struct {
			Metadata stripeMetadata `json:"metadata"`
		} `json:"data"`
	} `json:"lines"`
}

func (p *StripeProvider) ParseWebhook(payload []byte) (*entity.WebhookEvent, error) {
	var envelope struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, fmt.Errorf("%w: event id is missing", ErrMalformedPayload)
	}

	event := &entity.WebhookEvent{
		ID:      strings.TrimSpace(envelope.ID),
		Type:    envelope.Type,
		Kind:    stripeEventKind(envelope.Type),
		Created: time.Unix(envelope.Created, 0).UTC(),
		Payload: payload,
	}

	var object stripeObject
	if len(envelope.Data.Object) > 0 {
		if err := json.Unmarshal(envelope.Data.Object, &object); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}

	sources := []stripeMetadata{object.Metadata, object.SubscriptionDetails.Metadata}
	if len(object.Lines.Data) > 0 {
		sources = append(sources, object.Lines.Data[0].Metadata)
	}
	event.Metadata = entity.WebhookMetadata{
		OrderCode:         lookupMetadata(sources, "orderCode", "order_code"),
		ChannelToken:      lookupMetadata(sources, "channelToken", "channel_token"),
		PaymentMethodCode: lookupMetadata(sources, "paymentMethodCode", "payment_method_code"),
	}

	amount, err := parseAmount(lookupMetadata(sources[:2], "amount"))
	if err != nil {
		return nil, err
	}
	event.Metadata.Amount = amount

	for _, line := range object.Lines.Data {
		lineAmount, err := parseAmount(lookupMetadata([]stripeMetadata{line.Metadata}, "amount"))
		if err != nil {
			return nil, err
		}
		if lineAmount != nil {
			event.LineAmounts = append(event.LineAmounts, *lineAmount)
		}
	}

	subscriptionID := parseStringish(object.Subscription)
	if strings.HasPrefix(envelope.Type, "customer.subscription.") {
		subscriptionID = strings.TrimSpace(object.ID)
	}
	if subscriptionID != "" {
		event.ProviderSubscriptionID = &subscriptionID
	}

	return event, nil
}

func stripeEventKind(eventType string) entity.WebhookEventKind {
	switch eventType {
	case "payment_intent.succeeded", "invoice.paid", "invoice.payment_succeeded":
		return entity.EventChargeSucceeded
	case "payment_intent.payment_failed", "invoice.payment_failed":
		return entity.EventChargeFailed
	case "invoice.upcoming", "invoice.created":
		return entity.EventRenewalStarted
	case "customer.subscription.deleted":
		return entity.EventCanceled
	default:
		return entity.EventUnknown
	}
}

// lookupMetadata returns the first non-empty value of any key across sources, in order.
func lookupMetadata(sources []stripeMetadata, keys ...string) string {
	for _, source := range sources {
		for _, key := range keys {
			raw, ok := source[key]
			if !ok {
				continue
			}
			if s := metadataString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}

func metadataString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return strings.TrimSpace(s)
		}
		return ""
	}
	if string(raw) == "null" {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func parseAmount(value string) (*int64, error) {
	if value == "" {
		return nil, nil
	}
	amount, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q is not an integer", ErrMalformedPayload, value)
	}
	return &amount, nil
}

func verifyStripeSignature(payload []byte, signatureHeader string, webhookSecret string, toleranceSeconds int64) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(webhookSecret) == "" {
		return false
	}

	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := time.Now().Unix()
	if now-tsUnix > toleranceSeconds || tsUnix-now > toleranceSeconds {
		return false
	}

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	expected := mac.Sum(nil)

	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}
	return false
}

func parseStringish(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		if raw, ok := t["id"]; ok {
			if s, ok := raw.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// SignStripePayload builds a Stripe-Signature header for payload at ts.
func SignStripePayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10) + "." + string(payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
