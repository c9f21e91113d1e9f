package promotion

import "strings"

type Registry struct {
	actions map[string]Action
}

func NewRegistry(actions ...Action) *Registry {
	items := make(map[string]Action, len(actions))
	for _, a := range actions {
		items[a.Code()] = a
	}
	return &Registry{actions: items}
}

// NewDefaultRegistry registers the built-in future-payment discounts.
func NewDefaultRegistry() *Registry {
	return NewRegistry(FuturePaymentDiscount{}, FixedFuturePaymentDiscount{})
}

func (r *Registry) Get(code string) (Action, error) {
	action, ok := r.actions[strings.TrimSpace(code)]
	if !ok {
		return nil, ErrActionNotSupported
	}
	return action, nil
}

func (r *Registry) GetSubscriptionAction(code string) (SubscriptionAction, error) {
	action, err := r.Get(code)
	if err != nil {
		return nil, err
	}
	subscriptionAction, ok := action.(SubscriptionAction)
	if !ok {
		return nil, ErrNotSubscriptionAction
	}
	return subscriptionAction, nil
}
