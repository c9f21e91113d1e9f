package promotion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
)

var (
	ErrActionNotSupported    = errors.New("promotion action is not supported")
	ErrNotSubscriptionAction = errors.New("promotion action does not apply to subscriptions")
	ErrInvalidArgs           = errors.New("invalid promotion action arguments")
)

const (
	FuturePaymentDiscountCode      = "future_payment_discount"
	FixedFuturePaymentDiscountCode = "future_payment_fixed_discount"
)

type Args map[string]string

type OrderContext struct {
	ChannelToken string
	OrderCode    string
	SubTotal     int64
}

// Action is a generic order-level promotion action. Execute returns the amount taken
// off the current order total.
type Action interface {
	Code() string
	ValidateArgs(args Args) error
	Execute(order OrderContext, args Args) int64
}

// SubscriptionAction discounts future recurring charges through a second entry point.
// Its Execute never touches the order total.
type SubscriptionAction interface {
	Action
	ExecuteOnSubscription(currentRecurringPrice int64, args Args) int64
}

// FuturePaymentDiscount takes args["discount"] percent off each future recurring charge.
type FuturePaymentDiscount struct{}

func (FuturePaymentDiscount) Code() string { return FuturePaymentDiscountCode }

func (FuturePaymentDiscount) ValidateArgs(args Args) error {
	_, err := percentArg(args)
	return err
}

func (FuturePaymentDiscount) Execute(OrderContext, Args) int64 { return 0 }

func (FuturePaymentDiscount) ExecuteOnSubscription(currentRecurringPrice int64, args Args) int64 {
	percent, err := percentArg(args)
	if err != nil || currentRecurringPrice <= 0 {
		return 0
	}
	discount := decimal.NewFromInt(currentRecurringPrice).Mul(percent).Div(decimal.NewFromInt(100))
	return clamp(pricing.RoundMinor(discount), currentRecurringPrice)
}

// FixedFuturePaymentDiscount takes args["amount"] minor units off each future recurring charge.
type FixedFuturePaymentDiscount struct{}

func (FixedFuturePaymentDiscount) Code() string { return FixedFuturePaymentDiscountCode }

func (FixedFuturePaymentDiscount) ValidateArgs(args Args) error {
	_, err := amountArg(args)
	return err
}

func (FixedFuturePaymentDiscount) Execute(OrderContext, Args) int64 { return 0 }

func (FixedFuturePaymentDiscount) ExecuteOnSubscription(currentRecurringPrice int64, args Args) int64 {
	amount, err := amountArg(args)
	if err != nil || currentRecurringPrice <= 0 {
		return 0
	}
	return clamp(amount, currentRecurringPrice)
}

// Applied binds a subscription action to its arguments so the pricing calculator can
// run it as a discounter.
type Applied struct {
	Action SubscriptionAction
	Args   Args
}

func (a Applied) DiscountOnSubscription(currentRecurringPrice int64) int64 {
	if a.Action == nil {
		return 0
	}
	return a.Action.ExecuteOnSubscription(currentRecurringPrice, a.Args)
}

func percentArg(args Args) (decimal.Decimal, error) {
	raw := strings.TrimSpace(args["discount"])
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: discount is required", ErrInvalidArgs)
	}
	percent, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: discount %q is not a number", ErrInvalidArgs, raw)
	}
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidArgs)
	}
	return percent, nil
}

func amountArg(args Args) (int64, error) {
	raw := strings.TrimSpace(args["amount"])
	if raw == "" {
		return 0, fmt.Errorf("%w: amount is required", ErrInvalidArgs)
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount < 0 {
		return 0, fmt.Errorf("%w: amount must be a non-negative integer", ErrInvalidArgs)
	}
	return amount, nil
}

func clamp(discount, price int64) int64 {
	if discount < 0 {
		return 0
	}
	if discount > price {
		return price
	}
	return discount
}
