package entity

import "testing"

func TestExpectedChargeAmountFollowsCycles(t *testing.T) {
	sub := &Subscription{AmountDueNow: 1500, FirstRecurringAmount: 3001, RecurringAmount: 3000}

	want := []int64{1500, 3001, 3000, 3000}
	for cycle, amount := range want {
		sub.CyclesPaid = int32(cycle)
		if got := sub.ExpectedChargeAmount(); got != amount {
			t.Fatalf("cycle %d: expected %d, got %d", cycle, amount, got)
		}
	}
}

func TestExpectedChargeAmountWithoutCheckoutCharge(t *testing.T) {
	sub := &Subscription{AmountDueNow: 0, FirstRecurringAmount: 4500, RecurringAmount: 3000}
	if got := sub.ExpectedChargeAmount(); got != 4500 {
		t.Fatalf("expected first recurring amount, got %d", got)
	}
	sub.CyclesPaid = 1
	if got := sub.ExpectedChargeAmount(); got != 3000 {
		t.Fatalf("expected recurring amount, got %d", got)
	}
}

func TestWebhookEventChargedAmount(t *testing.T) {
	amount := int64(1200)
	event := &WebhookEvent{Metadata: WebhookMetadata{Amount: &amount}, LineAmounts: []int64{1, 2}}
	if got, ok := event.ChargedAmount(); !ok || got != 1200 {
		t.Fatalf("metadata amount should win, got %d ok=%v", got, ok)
	}

	event = &WebhookEvent{LineAmounts: []int64{1000, 500}}
	if got, ok := event.ChargedAmount(); !ok || got != 1500 {
		t.Fatalf("expected summed line amounts, got %d ok=%v", got, ok)
	}

	event = &WebhookEvent{}
	if _, ok := event.ChargedAmount(); ok {
		t.Fatal("expected no amount")
	}
}
