package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-subscriptions/app/mapper"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
	"github.com/vibast-solutions/ms-go-subscriptions/app/service"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	subscriptionService *service.SubscriptionService
	scheduleService     *service.ScheduleService
}

func NewServer(subscriptionService *service.SubscriptionService, scheduleService *service.ScheduleService) *Server {
	return &Server{subscriptionService: subscriptionService, scheduleService: scheduleService}
}

func (s *Server) Health(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encodeStruct(&types.HealthResponse{Status: "ok"})
}

func (s *Server) PreviewSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req := &types.PreviewSubscriptionRequest{}
	if err := decodeStruct(in, req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Preview subscription validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.subscriptionService.PreviewSubscription(ctx, req)
	if err != nil {
		return nil, pricingStatus(ctx, err, "Preview subscription failed")
	}
	return encodeStruct(mapper.PricingToProto(item))
}

func (s *Server) DefineOrderLineSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &types.DefineOrderLineSubscriptionRequest{}
	if err := decodeStruct(in, req); err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.subscriptionService.DefineOrderLineSubscription(ctx, req)
	if err != nil {
		return nil, pricingStatus(ctx, err, "Define order line subscription failed")
	}
	return encodeStruct(&types.OrderLineSubscriptionResponse{
		Line:         mapper.OrderLineToProto(item.Line),
		Subscription: mapper.SubscriptionToProto(item.Subscription),
	})
}

func (s *Server) ApplyFuturePaymentDiscount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &types.ApplyFuturePaymentDiscountRequest{}
	if err := decodeStruct(in, req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.subscriptionService.ApplyFuturePaymentDiscount(ctx, req)
	if err != nil {
		return nil, pricingStatus(ctx, err, "Apply future payment discount failed")
	}
	return encodeStruct(&types.ApplyFuturePaymentDiscountResponse{
		Line:                 mapper.OrderLineToProto(item.Line),
		Subscription:         mapper.SubscriptionToProto(item.Subscription),
		OrderTotalAdjustment: item.OrderTotalAdjustment,
	})
}

func (s *Server) GetSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &types.GetSubscriptionRequest{}
	if err := decodeStruct(in, req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	sub, lines, err := s.subscriptionService.GetSubscription(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			return nil, status.Error(codes.NotFound, "subscription not found")
		}
		loggerWithContext(ctx).WithError(err).Error("Get subscription failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return encodeStruct(&types.SubscriptionResponse{
		Subscription: mapper.SubscriptionToProto(sub),
		Lines:        mapper.OrderLinesToProto(lines),
	})
}

func (s *Server) GetSchedule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := &types.GetScheduleRequest{}
	if err := decodeStruct(in, req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.scheduleService.GetSchedule(ctx, req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			return nil, status.Error(codes.NotFound, "schedule not found")
		}
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return encodeStruct(&types.ScheduleResponse{Schedule: mapper.ScheduleToProto(item)})
}

func pricingStatus(ctx context.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidSchedule), errors.Is(err, pricing.ErrAmbiguousStartDate), errors.Is(err, pricing.ErrNegativeDuration):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrStrategyUnsupported), errors.Is(err, service.ErrPromotionUnsupported):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrScheduleNotFound), errors.Is(err, service.ErrSubscriptionNotFound), errors.Is(err, service.ErrOrderLineNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrOrderLocked):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, service.ErrPricingUnavailable):
		return status.Error(codes.Unavailable, "pricing temporarily unavailable")
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}
