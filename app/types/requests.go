package types

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	defaultScheduleListLimit = int32(100)
	maxScheduleListLimit     = int32(500)
	maxWebhookPayloadBytes   = 1 << 20
)

func NewPreviewSubscriptionRequestFromContext(ctx echo.Context) (*PreviewSubscriptionRequest, error) {
	var body PreviewSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.ChannelToken = strings.TrimSpace(body.ChannelToken)
	body.LanguageCode = strings.TrimSpace(body.LanguageCode)
	body.TaxZone = strings.TrimSpace(body.TaxZone)
	body.StrategyCode = strings.ToLower(strings.TrimSpace(body.StrategyCode))
	body.VariantId = strings.TrimSpace(body.VariantId)
	body.StartDate = strings.TrimSpace(body.StartDate)
	for _, d := range body.Discounts {
		if d != nil {
			d.ActionCode = strings.TrimSpace(d.ActionCode)
		}
	}

	return &body, nil
}

func (r *PreviewSubscriptionRequest) Validate() error {
	if r.GetChannelToken() == "" {
		return errors.New("channel_token is required")
	}
	if r.GetVariantId() == "" {
		return errors.New("variant_id is required")
	}
	if r.GetListPrice() < 0 {
		return errors.New("list_price must be >= 0")
	}
	if r.GetStartDate() != "" {
		if _, err := ParseDate(r.GetStartDate()); err != nil {
			return errors.New("start_date must be RFC3339 or YYYY-MM-DD")
		}
	}
	for _, d := range r.GetDiscounts() {
		if d.GetActionCode() == "" {
			return errors.New("discount action_code is required")
		}
	}
	return nil
}

func NewDefineOrderLineSubscriptionRequestFromContext(ctx echo.Context) (*DefineOrderLineSubscriptionRequest, error) {
	var body DefineOrderLineSubscriptionRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.ChannelToken = strings.TrimSpace(body.ChannelToken)
	body.LanguageCode = strings.TrimSpace(body.LanguageCode)
	body.TaxZone = strings.TrimSpace(body.TaxZone)
	body.StrategyCode = strings.ToLower(strings.TrimSpace(body.StrategyCode))
	body.OrderCode = strings.TrimSpace(body.OrderCode)
	body.OrderLineId = strings.TrimSpace(body.OrderLineId)
	body.PaymentMethodCode = strings.TrimSpace(body.PaymentMethodCode)
	body.VariantId = strings.TrimSpace(body.VariantId)
	if body.Quantity == 0 {
		body.Quantity = 1
	}

	return &body, nil
}

func (r *DefineOrderLineSubscriptionRequest) Validate() error {
	if r.GetChannelToken() == "" {
		return errors.New("channel_token is required")
	}
	if r.GetOrderCode() == "" {
		return errors.New("order_code is required")
	}
	if r.GetOrderLineId() == "" {
		return errors.New("order_line_id is required")
	}
	if r.GetVariantId() == "" {
		return errors.New("variant_id is required")
	}
	if r.GetListPrice() < 0 {
		return errors.New("list_price must be >= 0")
	}
	if r.GetQuantity() < 1 {
		return errors.New("quantity must be >= 1")
	}
	return nil
}

func NewApplyFuturePaymentDiscountRequestFromContext(ctx echo.Context) (*ApplyFuturePaymentDiscountRequest, error) {
	var body ApplyFuturePaymentDiscountRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.ChannelToken = strings.TrimSpace(body.ChannelToken)
	body.OrderCode = strings.TrimSpace(body.OrderCode)
	body.OrderLineId = strings.TrimSpace(body.OrderLineId)
	body.ActionCode = strings.TrimSpace(body.ActionCode)

	return &body, nil
}

func (r *ApplyFuturePaymentDiscountRequest) Validate() error {
	if r.GetChannelToken() == "" {
		return errors.New("channel_token is required")
	}
	if r.GetOrderCode() == "" {
		return errors.New("order_code is required")
	}
	if r.GetOrderLineId() == "" {
		return errors.New("order_line_id is required")
	}
	if r.GetActionCode() == "" {
		return errors.New("action_code is required")
	}
	return nil
}

func NewGetSubscriptionRequestFromContext(ctx echo.Context) (*GetSubscriptionRequest, error) {
	return &GetSubscriptionRequest{
		ChannelToken: strings.TrimSpace(ctx.Param("channel")),
		OrderCode:    strings.TrimSpace(ctx.Param("orderCode")),
	}, nil
}

func (r *GetSubscriptionRequest) Validate() error {
	if r.GetChannelToken() == "" {
		return errors.New("channel is required")
	}
	if r.GetOrderCode() == "" {
		return errors.New("order code is required")
	}
	return nil
}

func NewCreateScheduleRequestFromContext(ctx echo.Context) (*CreateScheduleRequest, error) {
	var body CreateScheduleRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Name = strings.TrimSpace(body.Name)
	body.DurationInterval = strings.ToLower(strings.TrimSpace(body.DurationInterval))
	body.BillingInterval = strings.ToLower(strings.TrimSpace(body.BillingInterval))
	body.StartMoment = strings.ToLower(strings.TrimSpace(body.StartMoment))
	body.FixedStartDate = strings.TrimSpace(body.FixedStartDate)

	return &body, nil
}

func (r *CreateScheduleRequest) Validate() error {
	if r.GetName() == "" {
		return errors.New("name is required")
	}
	if r.GetBillingInterval() == "" {
		return errors.New("billing_interval is required")
	}
	if r.GetBillingCount() < 1 {
		return errors.New("billing_count must be >= 1")
	}
	if r.GetDurationCount() < 0 {
		return errors.New("duration_count must be >= 0")
	}
	if r.GetStartMoment() == "" {
		return errors.New("start_moment is required")
	}
	if r.GetDownpayment() < 0 {
		return errors.New("downpayment must be >= 0")
	}
	if r.GetFixedStartDate() != "" {
		if _, err := ParseDate(r.GetFixedStartDate()); err != nil {
			return errors.New("fixed_start_date must be RFC3339 or YYYY-MM-DD")
		}
	}
	return nil
}

func NewGetScheduleRequestFromContext(ctx echo.Context) (*GetScheduleRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetScheduleRequest{Id: id}, nil
}

func (r *GetScheduleRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid schedule id")
	}
	return nil
}

func NewListSchedulesRequestFromContext(ctx echo.Context) (*ListSchedulesRequest, error) {
	req := &ListSchedulesRequest{Limit: defaultScheduleListLimit}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}
	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListSchedulesRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = defaultScheduleListLimit
	}
	if r.GetLimit() <= 0 || r.GetLimit() > maxScheduleListLimit {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}

// NewHandleWebhookRequestFromContext keeps the raw body untouched; signatures are
// computed over the exact bytes the provider sent.
func NewHandleWebhookRequestFromContext(ctx echo.Context) (*HandleWebhookRequest, error) {
	signature := strings.TrimSpace(ctx.Request().Header.Get("Stripe-Signature"))
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get("X-Provider-Signature"))
	}

	rawBody, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookPayloadBytes))
	if err != nil {
		return nil, err
	}

	return &HandleWebhookRequest{
		RequestId: strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID)),
		Provider:  strings.ToLower(strings.TrimSpace(ctx.Param("provider"))),
		Signature: signature,
		Payload:   rawBody,
	}, nil
}

func (r *HandleWebhookRequest) Validate() error {
	if r.GetProvider() == "" {
		return errors.New("provider is required")
	}
	if r.GetSignature() == "" {
		return errors.New("provider signature is required")
	}
	if len(r.GetPayload()) == 0 {
		return errors.New("payload is required")
	}
	return nil
}

// ParseDate accepts RFC3339 timestamps and plain dates (UTC midnight).
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
