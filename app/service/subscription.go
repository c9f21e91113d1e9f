package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/lock"
	"github.com/vibast-solutions/ms-go-subscriptions/app/metrics"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
	"github.com/vibast-solutions/ms-go-subscriptions/app/promotion"
	"github.com/vibast-solutions/ms-go-subscriptions/app/strategy"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
	"github.com/vibast-solutions/ms-go-subscriptions/config"
)

type previewSubscriptionRequest interface {
	GetChannelToken() string
	GetLanguageCode() string
	GetTaxZone() string
	GetStrategyCode() string
	GetVariantId() string
	GetListPrice() int64
	GetListPriceIncludesTax() bool
	GetScheduleId() uint64
	GetStartDate() string
	GetDiscounts() []*types.DiscountInput
}

type defineOrderLineSubscriptionRequest interface {
	GetChannelToken() string
	GetLanguageCode() string
	GetTaxZone() string
	GetStrategyCode() string
	GetOrderCode() string
	GetOrderLineId() string
	GetPaymentMethodCode() string
	GetVariantId() string
	GetListPrice() int64
	GetListPriceIncludesTax() bool
	GetScheduleId() uint64
	GetQuantity() int32
}

type applyFuturePaymentDiscountRequest interface {
	GetChannelToken() string
	GetOrderCode() string
	GetOrderLineId() string
	GetActionCode() string
	GetArgs() map[string]string
}

type getSubscriptionRequest interface {
	GetChannelToken() string
	GetOrderCode() string
}

type orderLineRepository interface {
	Upsert(ctx context.Context, line *entity.OrderLineSubscription) error
	FindByOrderLine(ctx context.Context, channelToken, orderCode, orderLineID string) (*entity.OrderLineSubscription, error)
	ListByOrder(ctx context.Context, channelToken, orderCode string) ([]*entity.OrderLineSubscription, error)
}

type orderSubscriptionRepository interface {
	Upsert(ctx context.Context, sub *entity.Subscription) error
	FindByOrder(ctx context.Context, channelToken, orderCode string) (*entity.Subscription, error)
}

// DefinedLine is the outcome of pricing one order line: the stored line and the
// re-aggregated order record.
type DefinedLine struct {
	Line         *entity.OrderLineSubscription
	Subscription *entity.Subscription
}

type AppliedDiscount struct {
	DefinedLine
	OrderTotalAdjustment int64
}

type SubscriptionService struct {
	strategies       *strategy.Registry
	promotions       *promotion.Registry
	lineRepo         orderLineRepository
	subscriptionRepo orderSubscriptionRepository
	locker           lock.Locker
	guard            *pricingGuard
	logger           logrus.FieldLogger
	now              func() time.Time
}

func NewSubscriptionService(
	strategies *strategy.Registry,
	promotions *promotion.Registry,
	lineRepo orderLineRepository,
	subscriptionRepo orderSubscriptionRepository,
	locker lock.Locker,
	pricingCfg config.PricingConfig,
	observer metrics.Observer,
	logger logrus.FieldLogger,
) *SubscriptionService {
	return &SubscriptionService{
		strategies:       strategies,
		promotions:       promotions,
		lineRepo:         lineRepo,
		subscriptionRepo: subscriptionRepo,
		locker:           locker,
		guard:            newPricingGuard(pricingCfg, observer, logger),
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *SubscriptionService) PreviewSubscription(ctx context.Context, req previewSubscriptionRequest) (*strategy.Subscription, error) {
	strat, err := s.resolveStrategy(req.GetStrategyCode())
	if err != nil {
		return nil, err
	}

	inputs := &strategy.CustomInputs{}
	if raw := strings.TrimSpace(req.GetStartDate()); raw != "" {
		start, err := types.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date %q", ErrInvalidRequest, raw)
		}
		inputs.StartDate = &start
	}

	requested := make([]entity.AppliedDiscount, 0, len(req.GetDiscounts()))
	for _, d := range req.GetDiscounts() {
		requested = append(requested, entity.AppliedDiscount{ActionCode: d.GetActionCode(), Args: d.GetArgs()})
	}
	if inputs.Discounts, err = s.resolveDiscounts(requested); err != nil {
		return nil, err
	}

	rc := strategy.RequestContext{
		ChannelToken: strings.TrimSpace(req.GetChannelToken()),
		LanguageCode: strings.TrimSpace(req.GetLanguageCode()),
		TaxZone:      strings.TrimSpace(req.GetTaxZone()),
		Now:          s.now(),
	}
	variant := strategy.Variant{
		ID:                   strings.TrimSpace(req.GetVariantId()),
		ListPrice:            req.GetListPrice(),
		ListPriceIncludesTax: req.GetListPriceIncludesTax(),
		ScheduleID:           req.GetScheduleId(),
	}

	return s.guard.run(strat.Code(), func() (*strategy.Subscription, error) {
		return strat.PreviewSubscription(ctx, rc, variant, inputs)
	})
}

func (s *SubscriptionService) DefineOrderLineSubscription(ctx context.Context, req defineOrderLineSubscriptionRequest) (*DefinedLine, error) {
	channelToken := strings.TrimSpace(req.GetChannelToken())
	orderCode := strings.TrimSpace(req.GetOrderCode())
	orderLineID := strings.TrimSpace(req.GetOrderLineId())
	if channelToken == "" || orderCode == "" || orderLineID == "" {
		return nil, ErrInvalidRequest
	}

	strat, err := s.resolveStrategy(req.GetStrategyCode())
	if err != nil {
		return nil, err
	}

	release, err := s.lockOrder(ctx, channelToken, orderCode)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := s.subscriptionRepo.FindByOrder(ctx, channelToken, orderCode)
	if err != nil {
		return nil, err
	}
	if sub != nil && sub.State != entity.StatePendingActivation {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidState, orderCode, sub.State)
	}

	existing, err := s.lineRepo.FindByOrderLine(ctx, channelToken, orderCode, orderLineID)
	if err != nil {
		return nil, err
	}

	var storedDiscounts []entity.AppliedDiscount
	if existing != nil {
		storedDiscounts = existing.Discounts
	}
	discounts, err := s.resolveDiscounts(storedDiscounts)
	if err != nil {
		return nil, err
	}

	rc := strategy.RequestContext{
		ChannelToken: channelToken,
		LanguageCode: strings.TrimSpace(req.GetLanguageCode()),
		TaxZone:      strings.TrimSpace(req.GetTaxZone()),
		Now:          s.now(),
	}
	orderLine := strategy.OrderLine{
		ID:        orderLineID,
		OrderCode: orderCode,
		Variant: strategy.Variant{
			ID:                   strings.TrimSpace(req.GetVariantId()),
			ListPrice:            req.GetListPrice(),
			ListPriceIncludesTax: req.GetListPriceIncludesTax(),
			ScheduleID:           req.GetScheduleId(),
		},
		Quantity: req.GetQuantity(),
	}

	priced, err := s.guard.run(strat.Code(), func() (*strategy.Subscription, error) {
		return strat.DefineSubscription(ctx, rc, orderLine)
	})
	if err != nil {
		return nil, err
	}
	if len(discounts) > 0 && priced.Breakdown != nil {
		priced.Breakdown.ApplyDiscounts(discounts...)
		priced = strategy.FromBreakdown(priced.Breakdown)
	}

	now := s.now()
	line := lineFromPricing(priced)
	line.ChannelToken = channelToken
	line.OrderCode = orderCode
	line.OrderLineID = orderLineID
	line.VariantID = orderLine.Variant.ID
	line.StrategyCode = strat.Code()
	line.Quantity = orderLine.Quantity
	line.CorrelationHash = CorrelationHash(channelToken, orderCode)
	line.Discounts = storedDiscounts
	line.SubscriptionIDs = subscriptionIDs(priced, existing)
	line.CreatedAt = now
	line.UpdatedAt = now
	if existing != nil {
		line.CreatedAt = existing.CreatedAt
	}

	if err := s.lineRepo.Upsert(ctx, line); err != nil {
		return nil, err
	}

	if sub == nil {
		sub = &entity.Subscription{
			ChannelToken: channelToken,
			OrderCode:    orderCode,
			State:        entity.StatePendingActivation,
			CreatedAt:    now,
		}
	}
	sub.PaymentMethodCode = strings.TrimSpace(req.GetPaymentMethodCode())
	if err := s.reaggregate(ctx, sub, now); err != nil {
		return nil, err
	}

	return &DefinedLine{Line: line, Subscription: sub}, nil
}

func (s *SubscriptionService) ApplyFuturePaymentDiscount(ctx context.Context, req applyFuturePaymentDiscountRequest) (*AppliedDiscount, error) {
	channelToken := strings.TrimSpace(req.GetChannelToken())
	orderCode := strings.TrimSpace(req.GetOrderCode())
	orderLineID := strings.TrimSpace(req.GetOrderLineId())
	if channelToken == "" || orderCode == "" || orderLineID == "" {
		return nil, ErrInvalidRequest
	}

	action, err := s.promotions.GetSubscriptionAction(req.GetActionCode())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPromotionUnsupported, req.GetActionCode(), err)
	}
	args := promotion.Args(cloneArgs(req.GetArgs()))
	if err := action.ValidateArgs(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	release, err := s.lockOrder(ctx, channelToken, orderCode)
	if err != nil {
		return nil, err
	}
	defer release()

	sub, err := s.subscriptionRepo.FindByOrder(ctx, channelToken, orderCode)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	if sub.State == entity.StateCanceled {
		return nil, fmt.Errorf("%w: order %s is canceled", ErrInvalidState, orderCode)
	}

	line, err := s.lineRepo.FindByOrderLine(ctx, channelToken, orderCode, orderLineID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, ErrOrderLineNotFound
	}
	if line.Interval == nil {
		return nil, fmt.Errorf("%w: order line %s has no recurring payment", ErrInvalidRequest, orderLineID)
	}

	applied := make([]entity.AppliedDiscount, 0, len(line.Discounts)+1)
	for _, d := range line.Discounts {
		if d.ActionCode != action.Code() {
			applied = append(applied, d)
		}
	}
	applied = append(applied, entity.AppliedDiscount{ActionCode: action.Code(), Args: args})

	discounts, err := s.resolveDiscounts(applied)
	if err != nil {
		return nil, err
	}

	breakdown := &pricing.Breakdown{
		OriginalRecurringPrice: line.OriginalRecurringAmount,
		RecurringPrice:         line.RecurringAmount,
		FirstRecurringAmount:   line.FirstRecurringAmount,
	}
	breakdown.ApplyDiscounts(discounts...)

	now := s.now()
	line.RecurringAmount = breakdown.RecurringPrice
	line.FirstRecurringAmount = breakdown.FirstRecurringAmount
	line.Discounts = applied
	line.UpdatedAt = now
	if err := s.lineRepo.Upsert(ctx, line); err != nil {
		return nil, err
	}

	adjustment := action.Execute(promotion.OrderContext{
		ChannelToken: channelToken,
		OrderCode:    orderCode,
		SubTotal:     sub.AmountDueNow,
	}, args)

	if err := s.reaggregate(ctx, sub, now); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_code":      orderCode,
		"order_line_id":   orderLineID,
		"action":          action.Code(),
		"recurring_price": line.RecurringAmount,
	}).Info("future payment discount applied")

	return &AppliedDiscount{
		DefinedLine:          DefinedLine{Line: line, Subscription: sub},
		OrderTotalAdjustment: adjustment,
	}, nil
}

func (s *SubscriptionService) GetSubscription(ctx context.Context, req getSubscriptionRequest) (*entity.Subscription, []*entity.OrderLineSubscription, error) {
	channelToken := strings.TrimSpace(req.GetChannelToken())
	orderCode := strings.TrimSpace(req.GetOrderCode())

	sub, err := s.subscriptionRepo.FindByOrder(ctx, channelToken, orderCode)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, ErrSubscriptionNotFound
	}

	lines, err := s.lineRepo.ListByOrder(ctx, channelToken, orderCode)
	if err != nil {
		return nil, nil, err
	}
	return sub, lines, nil
}

func (s *SubscriptionService) resolveStrategy(code string) (strategy.Strategy, error) {
	strat, err := s.strategies.Get(strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, strategy.ErrStrategyNotSupported) {
			return nil, fmt.Errorf("%w: %q", ErrStrategyUnsupported, code)
		}
		return nil, err
	}
	return strat, nil
}

func (s *SubscriptionService) resolveDiscounts(items []entity.AppliedDiscount) ([]pricing.Discounter, error) {
	if len(items) == 0 {
		return nil, nil
	}

	discounts := make([]pricing.Discounter, 0, len(items))
	for _, item := range items {
		action, err := s.promotions.GetSubscriptionAction(item.ActionCode)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPromotionUnsupported, item.ActionCode, err)
		}
		args := promotion.Args(item.Args)
		if err := action.ValidateArgs(args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		discounts = append(discounts, promotion.Applied{Action: action, Args: args})
	}
	return discounts, nil
}

func (s *SubscriptionService) lockOrder(ctx context.Context, channelToken, orderCode string) (func(), error) {
	release, err := s.locker.Acquire(ctx, lock.OrderKey(channelToken, orderCode))
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: %s", ErrOrderLocked, orderCode)
		}
		return nil, err
	}
	return release, nil
}

// reaggregate recomputes the order record's expected amounts from all of its lines.
func (s *SubscriptionService) reaggregate(ctx context.Context, sub *entity.Subscription, now time.Time) error {
	lines, err := s.lineRepo.ListByOrder(ctx, sub.ChannelToken, sub.OrderCode)
	if err != nil {
		return err
	}

	aggregateLines(sub, lines)
	sub.UpdatedAt = now
	return s.subscriptionRepo.Upsert(ctx, sub)
}

func aggregateLines(sub *entity.Subscription, lines []*entity.OrderLineSubscription) {
	sub.AmountDueNow = 0
	sub.FirstRecurringAmount = 0
	sub.RecurringAmount = 0

	recurringLines := 0
	autoRenew := true
	for _, line := range lines {
		sub.AmountDueNow += line.AmountDueNow
		if line.Interval == nil {
			continue
		}
		recurringLines++
		sub.FirstRecurringAmount += line.FirstRecurringAmount
		sub.RecurringAmount += line.RecurringAmount
		autoRenew = autoRenew && line.AutoRenew
	}
	sub.AutoRenew = recurringLines > 0 && autoRenew
}

func lineFromPricing(priced *strategy.Subscription) *entity.OrderLineSubscription {
	line := &entity.OrderLineSubscription{}
	if priced.OneTime != nil {
		line.PriceIncludesTax = priced.OneTime.PriceIncludesTax
		line.AmountDueNow = priced.OneTime.AmountDueNow
	}
	if r := priced.Recurring; r != nil {
		interval := string(r.Interval)
		count := int32(r.IntervalCount)
		start := r.StartDate
		line.PriceIncludesTax = r.PriceIncludesTax
		line.RecurringAmount = r.Amount
		line.OriginalRecurringAmount = r.Amount
		line.FirstRecurringAmount = r.Amount
		line.Interval = &interval
		line.IntervalCount = &count
		line.StartDate = &start
		if r.EndDate != nil {
			end := *r.EndDate
			line.EndDate = &end
		}
	}
	if b := priced.Breakdown; b != nil {
		line.AutoRenew = b.AutoRenew && priced.Recurring != nil
		if priced.Recurring != nil {
			line.OriginalRecurringAmount = b.OriginalRecurringPrice
			line.FirstRecurringAmount = b.FirstRecurringAmount
		}
	}
	return line
}

// subscriptionIDs issues one id per payment part and keeps the ids of an earlier
// definition of the same line.
func subscriptionIDs(priced *strategy.Subscription, existing *entity.OrderLineSubscription) []string {
	parts := 0
	if priced.OneTime != nil {
		parts++
	}
	if priced.Recurring != nil {
		parts++
	}

	ids := make([]string, 0, parts)
	if existing != nil {
		for _, id := range existing.SubscriptionIDs {
			if len(ids) == parts {
				break
			}
			ids = append(ids, id)
		}
	}
	for len(ids) < parts {
		ids = append(ids, uuid.NewString())
	}
	return ids
}

var correlationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:subscriptions:order"))

// CorrelationHash identifies an order across providers without exposing its code.
func CorrelationHash(channelToken, orderCode string) string {
	return uuid.NewSHA1(correlationNamespace, []byte(channelToken+"|"+orderCode)).String()
}

func cloneArgs(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return dst
}
