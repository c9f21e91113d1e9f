package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
)

type memoryScheduleSource struct {
	schedules map[uint64]*entity.Schedule
	err       error
}

func (s *memoryScheduleSource) FindByID(_ context.Context, id uint64) (*entity.Schedule, error) {
	if s.err != nil {
		return nil, s.err
	}
	item, ok := s.schedules[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func purchaseContext() RequestContext {
	return RequestContext{
		ChannelToken: "web",
		LanguageCode: "en",
		Now:          time.Date(2026, time.November, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestDefaultStrategyPreview(t *testing.T) {
	s := NewDefaultStrategy()

	sub, err := s.PreviewSubscription(context.Background(), purchaseContext(), Variant{ID: "var-1", ListPrice: 3000, ListPriceIncludesTax: true}, nil)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if sub.OneTime == nil || sub.OneTime.AmountDueNow != 3000 {
		t.Fatalf("expected first month due now, got %+v", sub.OneTime)
	}
	if !sub.OneTime.PriceIncludesTax {
		t.Fatal("expected tax-inclusive one-time payment")
	}
	if sub.Recurring == nil {
		t.Fatal("expected recurring payment")
	}
	if sub.Recurring.Amount != 3000 || sub.Recurring.Interval != pricing.IntervalMonth || sub.Recurring.IntervalCount != 1 {
		t.Fatalf("unexpected recurring payment: %+v", sub.Recurring)
	}
	if !sub.Recurring.StartDate.Equal(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected first of next month, got %s", sub.Recurring.StartDate)
	}
	if sub.Recurring.EndDate != nil {
		t.Fatalf("expected open-ended subscription, got %s", sub.Recurring.EndDate)
	}
}

func TestDefaultStrategyStartsNextMonthOnFirstDay(t *testing.T) {
	s := NewDefaultStrategy()
	rc := purchaseContext()
	rc.Now = time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)

	sub, err := s.PreviewSubscription(context.Background(), rc, Variant{ID: "var-1", ListPrice: 3000}, nil)
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !sub.Recurring.StartDate.Equal(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected first of next month, got %s", sub.Recurring.StartDate)
	}
}

func TestDefaultStrategyDefineMultipliesQuantity(t *testing.T) {
	s := NewDefaultStrategy()
	line := OrderLine{ID: "line-1", OrderCode: "ORD-1", Variant: Variant{ID: "var-1", ListPrice: 1000}, Quantity: 3}

	sub, err := s.DefineSubscription(context.Background(), purchaseContext(), line)
	if err != nil {
		t.Fatalf("define failed: %v", err)
	}
	if sub.OneTime.AmountDueNow != 3000 || sub.Recurring.Amount != 3000 {
		t.Fatalf("unexpected amounts: one-time=%d recurring=%d", sub.OneTime.AmountDueNow, sub.Recurring.Amount)
	}
	if line.Quantity != 3 || line.Variant.ListPrice != 1000 {
		t.Fatal("order line must not be mutated")
	}
}

func TestDefaultStrategyRejectsZeroQuantity(t *testing.T) {
	_, err := NewDefaultStrategy().DefineSubscription(context.Background(), purchaseContext(), OrderLine{Variant: Variant{ListPrice: 1000}})
	if !errors.Is(err, ErrInvalidOrderLine) {
		t.Fatalf("expected ErrInvalidOrderLine, got %v", err)
	}
}

func TestDefaultStrategyPreviewCustomStartDate(t *testing.T) {
	start := time.Date(2026, time.November, 20, 0, 0, 0, 0, time.UTC)
	sub, err := NewDefaultStrategy().PreviewSubscription(context.Background(), purchaseContext(), Variant{ID: "var-1", ListPrice: 3000}, &CustomInputs{StartDate: &start})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !sub.Recurring.StartDate.Equal(start) {
		t.Fatalf("expected custom start date, got %s", sub.Recurring.StartDate)
	}
}

func TestScheduleStrategyUsesStoredSchedule(t *testing.T) {
	year := "year"
	source := &memoryScheduleSource{schedules: map[uint64]*entity.Schedule{
		7: {
			ID:               7,
			DurationInterval: &year,
			DurationCount:    1,
			BillingInterval:  "month",
			BillingCount:     1,
			StartMoment:      string(pricing.StartOfBillingInterval),
			Downpayment:      500,
			PaidUpFront:      true,
			UseProration:     true,
			AutoRenew:        false,
		},
	}}
	s := NewScheduleStrategy(source, false)

	line := OrderLine{ID: "line-1", Variant: Variant{ID: "var-1", ListPrice: 3000, ScheduleID: 7}, Quantity: 2}
	sub, err := s.DefineSubscription(context.Background(), purchaseContext(), line)
	if err != nil {
		t.Fatalf("define failed: %v", err)
	}

	b := sub.Breakdown
	if b.Downpayment != 1000 {
		t.Fatalf("expected downpayment scaled by quantity, got %d", b.Downpayment)
	}
	if b.ProratedDays != 15 || b.TotalProratedAmount != 3000 {
		t.Fatalf("unexpected proration: %d days / %d", b.ProratedDays, b.TotalProratedAmount)
	}
	if sub.OneTime.AmountDueNow != 4000 {
		t.Fatalf("expected 4000 due now, got %d", sub.OneTime.AmountDueNow)
	}
	if sub.Recurring.EndDate == nil || !sub.Recurring.EndDate.Equal(time.Date(2027, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end date: %v", sub.Recurring.EndDate)
	}
	if b.AutoRenew {
		t.Fatal("expected auto renew off")
	}
}

func TestScheduleStrategyMissingSchedule(t *testing.T) {
	s := NewScheduleStrategy(&memoryScheduleSource{schedules: map[uint64]*entity.Schedule{}}, false)

	_, err := s.PreviewSubscription(context.Background(), purchaseContext(), Variant{ID: "var-1", ListPrice: 3000, ScheduleID: 42}, nil)
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}

	_, err = s.PreviewSubscription(context.Background(), purchaseContext(), Variant{ID: "var-1", ListPrice: 3000}, nil)
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound without schedule id, got %v", err)
	}
}

func TestScheduleStrategyPropagatesSourceErrors(t *testing.T) {
	sourceErr := errors.New("connection refused")
	s := NewScheduleStrategy(&memoryScheduleSource{err: sourceErr}, false)

	_, err := s.PreviewSubscription(context.Background(), purchaseContext(), Variant{ID: "var-1", ListPrice: 3000, ScheduleID: 1}, nil)
	if !errors.Is(err, sourceErr) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestScheduleStrategyForbidsMixedDownpayment(t *testing.T) {
	source := &memoryScheduleSource{schedules: map[uint64]*entity.Schedule{
		1: {ID: 1, BillingInterval: "month", BillingCount: 1, StartMoment: string(pricing.StartTimeOfPurchase), Downpayment: 100},
	}}
	s := NewScheduleStrategy(source, true)

	_, err := s.PreviewSubscription(context.Background(), purchaseContext(), Variant{ID: "var-1", ListPrice: 3000, ScheduleID: 1}, nil)
	if !errors.Is(err, pricing.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestRegistryFallsBackToDefault(t *testing.T) {
	reg := NewRegistry(DefaultCode, NewDefaultStrategy())

	s, err := reg.Get("")
	if err != nil {
		t.Fatalf("expected default strategy, got %v", err)
	}
	if s.Code() != DefaultCode {
		t.Fatalf("unexpected strategy code %q", s.Code())
	}
	if _, err := reg.Get("missing"); !errors.Is(err, ErrStrategyNotSupported) {
		t.Fatalf("expected ErrStrategyNotSupported, got %v", err)
	}

	reg.Register(NewScheduleStrategy(&memoryScheduleSource{}, false))
	if codes := reg.Codes(); len(codes) != 2 || codes[0] != DefaultCode || codes[1] != ScheduleCode {
		t.Fatalf("unexpected codes: %v", codes)
	}
}

func TestFromBreakdownFreeItemIsOneTime(t *testing.T) {
	sub := FromBreakdown(&pricing.Breakdown{})
	if sub.OneTime == nil || sub.Recurring != nil {
		t.Fatalf("expected one-time only subscription, got %+v", sub)
	}
}
