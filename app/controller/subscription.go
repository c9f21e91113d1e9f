package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-subscriptions/app/factory"
	"github.com/vibast-solutions/ms-go-subscriptions/app/mapper"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
	"github.com/vibast-solutions/ms-go-subscriptions/app/service"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
)

type SubscriptionController struct {
	subscriptionService *service.SubscriptionService
	logger              logrus.FieldLogger
}

func NewSubscriptionController(subscriptionService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
		logger:              factory.NewModuleLogger("subscriptions-controller"),
	}
}

func (c *SubscriptionController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *SubscriptionController) PreviewSubscription(ctx echo.Context) error {
	req, err := types.NewPreviewSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.subscriptionService.PreviewSubscription(ctx.Request().Context(), req)
	if err != nil {
		return c.writePricingError(ctx, err, "Preview subscription failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PricingToProto(item))
}

func (c *SubscriptionController) DefineOrderLineSubscription(ctx echo.Context) error {
	req, err := types.NewDefineOrderLineSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.subscriptionService.DefineOrderLineSubscription(ctx.Request().Context(), req)
	if err != nil {
		return c.writePricingError(ctx, err, "Define order line subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderLineSubscriptionResponse{
		Line:         mapper.OrderLineToProto(item.Line),
		Subscription: mapper.SubscriptionToProto(item.Subscription),
	})
}

func (c *SubscriptionController) ApplyFuturePaymentDiscount(ctx echo.Context) error {
	req, err := types.NewApplyFuturePaymentDiscountRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.subscriptionService.ApplyFuturePaymentDiscount(ctx.Request().Context(), req)
	if err != nil {
		return c.writePricingError(ctx, err, "Apply future payment discount failed")
	}

	return ctx.JSON(http.StatusOK, &types.ApplyFuturePaymentDiscountResponse{
		Line:                 mapper.OrderLineToProto(item.Line),
		Subscription:         mapper.SubscriptionToProto(item.Subscription),
		OrderTotalAdjustment: item.OrderTotalAdjustment,
	})
}

func (c *SubscriptionController) GetSubscription(ctx echo.Context) error {
	req, err := types.NewGetSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	sub, lines, err := c.subscriptionService.GetSubscription(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "subscription not found")
		}
		c.logger.WithError(err).Error("Get subscription failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionResponse{
		Subscription: mapper.SubscriptionToProto(sub),
		Lines:        mapper.OrderLinesToProto(lines),
	})
}

func (c *SubscriptionController) writePricingError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidSchedule), errors.Is(err, pricing.ErrAmbiguousStartDate), errors.Is(err, pricing.ErrNegativeDuration):
		return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrStrategyUnsupported), errors.Is(err, service.ErrPromotionUnsupported):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrScheduleNotFound), errors.Is(err, service.ErrSubscriptionNotFound), errors.Is(err, service.ErrOrderLineNotFound):
		return c.writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrOrderLocked):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPricingUnavailable):
		return c.writeError(ctx, http.StatusServiceUnavailable, "pricing temporarily unavailable")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *SubscriptionController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
