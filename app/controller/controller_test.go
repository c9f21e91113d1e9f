package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/lock"
	"github.com/vibast-solutions/ms-go-subscriptions/app/metrics"
	"github.com/vibast-solutions/ms-go-subscriptions/app/promotion"
	"github.com/vibast-solutions/ms-go-subscriptions/app/provider"
	"github.com/vibast-solutions/ms-go-subscriptions/app/repository"
	"github.com/vibast-solutions/ms-go-subscriptions/app/service"
	"github.com/vibast-solutions/ms-go-subscriptions/app/strategy"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
	"github.com/vibast-solutions/ms-go-subscriptions/config"
)

const controllerWebhookSecret = "whsec_controller"

type controllerLineRepo struct {
	lines map[string]*entity.OrderLineSubscription
}

func (r *controllerLineRepo) Upsert(_ context.Context, line *entity.OrderLineSubscription) error {
	if r.lines == nil {
		r.lines = map[string]*entity.OrderLineSubscription{}
	}
	line.ID = uint64(len(r.lines) + 1)
	copyItem := *line
	r.lines[line.OrderLineID] = &copyItem
	return nil
}

func (r *controllerLineRepo) FindByOrderLine(_ context.Context, _, _, orderLineID string) (*entity.OrderLineSubscription, error) {
	item, ok := r.lines[orderLineID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *controllerLineRepo) ListByOrder(context.Context, string, string) ([]*entity.OrderLineSubscription, error) {
	out := make([]*entity.OrderLineSubscription, 0, len(r.lines))
	for _, item := range r.lines {
		copyItem := *item
		out = append(out, &copyItem)
	}
	return out, nil
}

type controllerSubscriptionRepo struct {
	sub *entity.Subscription
}

func (r *controllerSubscriptionRepo) Upsert(_ context.Context, sub *entity.Subscription) error {
	if r.sub == nil {
		sub.ID = 1
		copyItem := *sub
		r.sub = &copyItem
		return nil
	}
	sub.ID = r.sub.ID
	r.sub.AmountDueNow = sub.AmountDueNow
	r.sub.FirstRecurringAmount = sub.FirstRecurringAmount
	r.sub.RecurringAmount = sub.RecurringAmount
	r.sub.AutoRenew = sub.AutoRenew
	return nil
}

func (r *controllerSubscriptionRepo) FindByOrder(context.Context, string, string) (*entity.Subscription, error) {
	if r.sub == nil {
		return nil, nil
	}
	copyItem := *r.sub
	return &copyItem, nil
}

type controllerScheduleRepo struct {
	createFn func(ctx context.Context, schedule *entity.Schedule) error
	items    map[uint64]*entity.Schedule
}

func (r *controllerScheduleRepo) Create(ctx context.Context, schedule *entity.Schedule) error {
	if r.createFn != nil {
		return r.createFn(ctx, schedule)
	}
	schedule.ID = 1
	return nil
}

func (r *controllerScheduleRepo) FindByID(_ context.Context, id uint64) (*entity.Schedule, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return item, nil
}

func (r *controllerScheduleRepo) List(context.Context, int32, int32) ([]*entity.Schedule, error) {
	out := make([]*entity.Schedule, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

type controllerLedger struct{}

func (controllerLedger) Exists(context.Context, string, time.Time) (bool, error) { return false, nil }

func (controllerLedger) DeleteOlderThan(context.Context, time.Time, int32) (int64, error) {
	return 0, nil
}

type controllerCallbacks struct {
	created []*entity.WebhookCallback
}

func (r *controllerCallbacks) Create(_ context.Context, cb *entity.WebhookCallback) error {
	r.created = append(r.created, cb)
	return nil
}

func (r *controllerCallbacks) Update(context.Context, *entity.WebhookCallback) error { return nil }

func (r *controllerCallbacks) ListDueRetry(context.Context, time.Time, int32) ([]*entity.WebhookCallback, error) {
	return []*entity.WebhookCallback{}, nil
}

type controllerTransitions struct {
	applied []repository.Transition
}

func (s *controllerTransitions) ApplyTransition(_ context.Context, t repository.Transition) error {
	s.applied = append(s.applied, t)
	return nil
}

type controllerPublisher struct{}

func (controllerPublisher) Publish(context.Context, string, []byte) error { return nil }
func (controllerPublisher) Close() error                                  { return nil }

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, lock.ErrLockTimeout
}

func newSubscriptionControllerForTest(subs *controllerSubscriptionRepo, lines *controllerLineRepo) *SubscriptionController {
	svc := service.NewSubscriptionService(
		strategy.NewRegistry(strategy.DefaultCode, strategy.NewDefaultStrategy()),
		promotion.NewDefaultRegistry(),
		lines,
		subs,
		lock.NewKeyedLocker(time.Second),
		config.PricingConfig{},
		metrics.Nop(),
		logrus.New(),
	)
	return NewSubscriptionController(svc)
}

func newWebhookControllerForTest(subs *controllerSubscriptionRepo, locker lock.Locker) *WebhookController {
	svc := service.NewWebhookService(
		provider.NewRegistry(provider.NewStripeProvider(provider.StripeConfig{WebhookSecret: controllerWebhookSecret})),
		subs,
		controllerLedger{},
		&controllerCallbacks{},
		&controllerTransitions{},
		locker,
		controllerPublisher{},
		metrics.Nop(),
		config.WebhooksConfig{MaxAttempts: 3},
		logrus.New(),
	)
	return NewWebhookController(svc)
}

func jsonContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestPreviewSubscriptionBadBody(t *testing.T) {
	ctrl := newSubscriptionControllerForTest(&controllerSubscriptionRepo{}, &controllerLineRepo{})
	ctx, rec := jsonContext(http.MethodPost, "/subscriptions/preview", "{bad")

	if err := ctrl.PreviewSubscription(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPreviewSubscriptionSuccess(t *testing.T) {
	ctrl := newSubscriptionControllerForTest(&controllerSubscriptionRepo{}, &controllerLineRepo{})
	ctx, rec := jsonContext(http.MethodPost, "/subscriptions/preview", `{"channel_token":"web","variant_id":"var-1","list_price":3000,"start_date":"2027-01-01"}`)

	_ = ctrl.PreviewSubscription(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.SubscriptionPricing
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Recurring == nil || payload.Recurring.Amount != 3000 || payload.Recurring.StartDate != "2027-01-01T00:00:00Z" {
		t.Fatalf("unexpected recurring payment: %+v", payload.Recurring)
	}
}

func TestPreviewSubscriptionUnknownStrategy(t *testing.T) {
	ctrl := newSubscriptionControllerForTest(&controllerSubscriptionRepo{}, &controllerLineRepo{})
	ctx, rec := jsonContext(http.MethodPost, "/subscriptions/preview", `{"channel_token":"web","strategy_code":"missing","variant_id":"var-1","list_price":3000}`)

	_ = ctrl.PreviewSubscription(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestDefineOrderLineSubscriptionSuccess(t *testing.T) {
	subs := &controllerSubscriptionRepo{}
	ctrl := newSubscriptionControllerForTest(subs, &controllerLineRepo{})
	ctx, rec := jsonContext(http.MethodPost, "/subscriptions/order-lines", `{"channel_token":"web","order_code":"ORD-1","order_line_id":"line-1","payment_method_code":"stripe","variant_id":"var-1","list_price":1000,"quantity":2}`)

	_ = ctrl.DefineOrderLineSubscription(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.OrderLineSubscriptionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Line == nil || payload.Line.RecurringAmount != 2000 || len(payload.Line.SubscriptionIds) != 2 {
		t.Fatalf("unexpected line: %+v", payload.Line)
	}
	if payload.Subscription == nil || payload.Subscription.State != string(entity.StatePendingActivation) {
		t.Fatalf("unexpected subscription: %+v", payload.Subscription)
	}
}

func TestDefineOrderLineSubscriptionActiveOrderConflict(t *testing.T) {
	subs := &controllerSubscriptionRepo{sub: &entity.Subscription{ID: 1, ChannelToken: "web", OrderCode: "ORD-1", State: entity.StateActive}}
	ctrl := newSubscriptionControllerForTest(subs, &controllerLineRepo{})
	ctx, rec := jsonContext(http.MethodPost, "/subscriptions/order-lines", `{"channel_token":"web","order_code":"ORD-1","order_line_id":"line-1","variant_id":"var-1","list_price":1000}`)

	_ = ctrl.DefineOrderLineSubscription(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestApplyFuturePaymentDiscountUnknownOrder(t *testing.T) {
	ctrl := newSubscriptionControllerForTest(&controllerSubscriptionRepo{}, &controllerLineRepo{})
	ctx, rec := jsonContext(http.MethodPost, "/subscriptions/discounts", `{"channel_token":"web","order_code":"ORD-9","order_line_id":"line-1","action_code":"future_payment_discount","args":{"discount":"10"}}`)

	_ = ctrl.ApplyFuturePaymentDiscount(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetSubscriptionNotFound(t *testing.T) {
	ctrl := newSubscriptionControllerForTest(&controllerSubscriptionRepo{}, &controllerLineRepo{})
	ctx, rec := jsonContext(http.MethodGet, "/subscriptions/web/ORD-1", "")
	ctx.SetParamNames("channel", "orderCode")
	ctx.SetParamValues("web", "ORD-1")

	_ = ctrl.GetSubscription(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateScheduleValidation(t *testing.T) {
	ctrl := NewScheduleController(service.NewScheduleService(&controllerScheduleRepo{}))
	ctx, rec := jsonContext(http.MethodPost, "/schedules", `{"name":"fortnightly","billing_interval":"fortnight","billing_count":1,"start_moment":"time_of_purchase"}`)

	_ = ctrl.CreateSchedule(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported interval, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreateScheduleConflict(t *testing.T) {
	repo := &controllerScheduleRepo{createFn: func(context.Context, *entity.Schedule) error {
		return repository.ErrScheduleAlreadyExists
	}}
	ctrl := NewScheduleController(service.NewScheduleService(repo))
	ctx, rec := jsonContext(http.MethodPost, "/schedules", `{"name":"monthly","billing_interval":"month","billing_count":1,"start_moment":"time_of_purchase"}`)

	_ = ctrl.CreateSchedule(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetScheduleNotFound(t *testing.T) {
	ctrl := NewScheduleController(service.NewScheduleService(&controllerScheduleRepo{}))
	ctx, rec := jsonContext(http.MethodGet, "/schedules/9", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("9")

	_ = ctrl.GetSchedule(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListSchedulesSuccess(t *testing.T) {
	repo := &controllerScheduleRepo{items: map[uint64]*entity.Schedule{
		1: {ID: 1, Name: "monthly", BillingInterval: "month", BillingCount: 1, StartMoment: "time_of_purchase"},
	}}
	ctrl := NewScheduleController(service.NewScheduleService(repo))
	ctx, rec := jsonContext(http.MethodGet, "/schedules?limit=10", "")

	_ = ctrl.ListSchedules(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.ListSchedulesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(payload.Schedules) != 1 || payload.Schedules[0].Name != "monthly" {
		t.Fatalf("unexpected schedules: %+v", payload.Schedules)
	}
}

func webhookContext(payload []byte, signature string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-webhook-1")
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("provider")
	ctx.SetParamValues("stripe")
	return ctx, rec
}

func webhookPayload(id string) []byte {
	return []byte(`{"id":"` + id + `","type":"payment_intent.succeeded","created":1795000000,"data":{"object":{"id":"pi_1","metadata":{"orderCode":"ORD-1","channelToken":"web","amount":"1500"}}}}`)
}

func TestHandleWebhookRejected(t *testing.T) {
	ctrl := newWebhookControllerForTest(&controllerSubscriptionRepo{}, lock.NewKeyedLocker(time.Second))
	ctx, rec := webhookContext(webhookPayload("evt_1"), "t=1,v1=deadbeef")

	_ = ctrl.HandleWebhook(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWebhookMissingSignature(t *testing.T) {
	ctrl := newWebhookControllerForTest(&controllerSubscriptionRepo{}, lock.NewKeyedLocker(time.Second))
	ctx, rec := webhookContext(webhookPayload("evt_1"), "")

	_ = ctrl.HandleWebhook(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWebhookUnresolvableIsAcknowledged(t *testing.T) {
	ctrl := newWebhookControllerForTest(&controllerSubscriptionRepo{}, lock.NewKeyedLocker(time.Second))
	payload := webhookPayload("evt_2")
	ctx, rec := webhookContext(payload, provider.SignStripePayload(payload, controllerWebhookSecret, time.Now()))

	_ = ctrl.HandleWebhook(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payloadOut types.WebhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payloadOut); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payloadOut.Outcome != service.OutcomeUnresolvable || payloadOut.EventId != "evt_2" {
		t.Fatalf("unexpected response: %+v", payloadOut)
	}
}

func TestHandleWebhookLockedIsRequeued(t *testing.T) {
	subs := &controllerSubscriptionRepo{sub: &entity.Subscription{ID: 1, ChannelToken: "web", OrderCode: "ORD-1", State: entity.StatePendingActivation, AmountDueNow: 1500}}
	ctrl := newWebhookControllerForTest(subs, busyLocker{})
	payload := webhookPayload("evt_3")
	ctx, rec := webhookContext(payload, provider.SignStripePayload(payload, controllerWebhookSecret, time.Now()))

	_ = ctrl.HandleWebhook(ctx)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rec.Code, rec.Body.String())
	}
}
