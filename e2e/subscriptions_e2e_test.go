//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/provider"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultSubscriptionsHTTPBase = "http://localhost:48081"
	defaultSubscriptionsGRPCAddr = "localhost:49091"
	grpcServicePrefix            = "/subscriptions.SubscriptionsService/"
)

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	return c.doJSONWithAPIKey(t, method, path, body, subscriptionsCallerAPIKey())
}

func (c *httpClient) doJSONWithAPIKey(t *testing.T, method, path string, body any, apiKey string) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	return c.do(t, req)
}

func (c *httpClient) postWebhook(t *testing.T, payload []byte, signature string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	return c.do(t, req)
}

func (c *httpClient) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func waitForGRPC(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("grpc service not ready at %s", addr)
}

func dialSubscriptionsGRPC(t *testing.T, addr string) *grpc.ClientConn {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc dial failed: %v", err)
	}
	return conn
}

func grpcContextWithHeaders(apiKey, requestID string) context.Context {
	ctx := context.Background()
	if requestID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)
	}
	if apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", apiKey)
	}
	return ctx
}

func invokeStruct(ctx context.Context, conn *grpc.ClientConn, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, grpcServicePrefix+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func webhookSecret() string {
	if value := os.Getenv("STRIPE_WEBHOOK_SECRET"); value != "" {
		return value
	}
	return "whsec_e2e"
}

func TestSubscriptionsE2E(t *testing.T) {
	httpBase := os.Getenv("SUBSCRIPTIONS_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultSubscriptionsHTTPBase
	}
	grpcAddr := os.Getenv("SUBSCRIPTIONS_GRPC_ADDR")
	if grpcAddr == "" {
		grpcAddr = defaultSubscriptionsGRPCAddr
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}
	if err := waitForGRPC(grpcAddr, 30*time.Second); err != nil {
		t.Fatalf("grpc not ready: %v", err)
	}

	client := newHTTPClient(httpBase)
	conn := dialSubscriptionsGRPC(t, grpcAddr)
	defer conn.Close()

	orderCode := fmt.Sprintf("E2E-%d", time.Now().UnixNano())

	t.Run("HTTPMissingRequestID", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, httpBase+"/schedules", nil)
		if err != nil {
			t.Fatalf("new request failed: %v", err)
		}
		req.Header.Set("X-API-Key", subscriptionsCallerAPIKey())
		resp, _ := client.do(t, req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing x-request-id, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPUnauthorizedMissingAPIKey", func(t *testing.T) {
		resp, _ := client.doJSONWithAPIKey(t, http.MethodGet, "/schedules", nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for missing x-api-key, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPForbiddenInsufficientAccess", func(t *testing.T) {
		resp, _ := client.doJSONWithAPIKey(t, http.MethodGet, "/schedules", nil, subscriptionsNoAccessAPIKey())
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 for insufficient access, got %d", resp.StatusCode)
		}
	})

	t.Run("GRPCMissingRequestID", func(t *testing.T) {
		_, err := invokeStruct(context.Background(), conn, "GetSubscription", map[string]any{"channel_token": "web", "order_code": orderCode})
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument for missing x-request-id, got %v", err)
		}
	})

	t.Run("GRPCForbiddenInsufficientAccess", func(t *testing.T) {
		ctx := grpcContextWithHeaders(subscriptionsNoAccessAPIKey(), fmt.Sprintf("e2e-grpc-forbidden-%d", time.Now().UnixNano()))
		_, err := invokeStruct(ctx, conn, "GetSubscription", map[string]any{"channel_token": "web", "order_code": orderCode})
		if status.Code(err) != codes.PermissionDenied {
			t.Fatalf("expected PermissionDenied, got %v", err)
		}
	})

	var scheduleID uint64
	t.Run("HTTPCreateSchedule", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/schedules", map[string]any{
			"name":              fmt.Sprintf("yearly-%d", time.Now().UnixNano()),
			"duration_interval": "year",
			"duration_count":    1,
			"billing_interval":  "month",
			"billing_count":     1,
			"start_moment":      "start_of_billing_interval",
			"downpayment":       500,
			"paid_up_front":     true,
			"use_proration":     true,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.ScheduleResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal schedule failed: %v body=%s", err, string(body))
		}
		scheduleID = payload.Schedule.Id
	})

	t.Run("HTTPPreviewWithSchedule", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/subscriptions/preview", map[string]any{
			"channel_token": "web",
			"strategy_code": "schedule",
			"variant_id":    "var-e2e",
			"list_price":    3000,
			"schedule_id":   scheduleID,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.SubscriptionPricing
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal preview failed: %v", err)
		}
		if payload.Breakdown == nil || payload.Breakdown.Downpayment != 500 {
			t.Fatalf("unexpected breakdown: %+v", payload.Breakdown)
		}
	})

	var expectedDueNow int64
	t.Run("HTTPDefineOrderLine", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/subscriptions/order-lines", map[string]any{
			"channel_token":       "web",
			"order_code":          orderCode,
			"order_line_id":       "line-1",
			"payment_method_code": "stripe",
			"variant_id":          "var-e2e",
			"list_price":          3000,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.OrderLineSubscriptionResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal define failed: %v", err)
		}
		if payload.Subscription.State != "pending_activation" {
			t.Fatalf("unexpected state: %s", payload.Subscription.State)
		}
		expectedDueNow = payload.Subscription.AmountDueNow
	})

	t.Run("HTTPApplyFuturePaymentDiscount", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/subscriptions/order-lines/discounts", map[string]any{
			"channel_token": "web",
			"order_code":    orderCode,
			"order_line_id": "line-1",
			"action_code":   "future_payment_discount",
			"args":          map[string]string{"discount": "10"},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.ApplyFuturePaymentDiscountResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal discount failed: %v", err)
		}
		if payload.OrderTotalAdjustment != 0 || payload.Line.RecurringAmount != 2700 {
			t.Fatalf("unexpected discount result: %+v", payload)
		}
	})

	t.Run("HTTPWebhookBadSignature", func(t *testing.T) {
		resp, body := client.postWebhook(t, []byte(`{"id":"evt_bad"}`), "t=1,v1=00")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	eventID := fmt.Sprintf("evt_e2e_%d", time.Now().UnixNano())
	payload, _ := json.Marshal(map[string]any{
		"id":      eventID,
		"type":    "payment_intent.succeeded",
		"created": time.Now().Unix(),
		"data": map[string]any{"object": map[string]any{
			"id": "pi_e2e",
			"metadata": map[string]string{
				"orderCode":         orderCode,
				"channelToken":      "web",
				"paymentMethodCode": "stripe",
				"amount":            fmt.Sprintf("%d", expectedDueNow),
			},
		}},
	})

	t.Run("HTTPWebhookActivates", func(t *testing.T) {
		resp, body := client.postWebhook(t, payload, provider.SignStripePayload(payload, webhookSecret(), time.Now()))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var out types.WebhookResponse
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("unmarshal webhook failed: %v", err)
		}
		if out.Outcome != "applied" {
			t.Fatalf("expected applied, got %+v", out)
		}
	})

	t.Run("HTTPWebhookDuplicate", func(t *testing.T) {
		resp, body := client.postWebhook(t, payload, provider.SignStripePayload(payload, webhookSecret(), time.Now()))
		var out types.WebhookResponse
		_ = json.Unmarshal(body, &out)
		if resp.StatusCode != http.StatusOK || out.Outcome != "already_processed" {
			t.Fatalf("expected already_processed, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("GRPCGetSubscriptionActive", func(t *testing.T) {
		ctx := grpcContextWithHeaders(subscriptionsCallerAPIKey(), fmt.Sprintf("e2e-grpc-%d", time.Now().UnixNano()))
		out, err := invokeStruct(ctx, conn, "GetSubscription", map[string]any{"channel_token": "web", "order_code": orderCode})
		if err != nil {
			t.Fatalf("grpc get subscription failed: %v", err)
		}
		state := out.GetFields()["subscription"].GetStructValue().GetFields()["state"].GetStringValue()
		if state != "active" {
			t.Fatalf("expected active, got %q", state)
		}
	})

	t.Run("HTTPGetSubscriptionNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/subscriptions/web/missing-order", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})
}
