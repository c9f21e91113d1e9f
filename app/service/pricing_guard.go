package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/vibast-solutions/ms-go-subscriptions/app/metrics"
	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
	"github.com/vibast-solutions/ms-go-subscriptions/app/strategy"
	"github.com/vibast-solutions/ms-go-subscriptions/config"
)

const (
	defaultBreakerFailureThreshold = uint32(5)
	defaultBreakerOpenTimeout      = 30 * time.Second
)

// pricingGuard runs strategy calls behind one circuit breaker per strategy code.
// Configuration errors are answers, not failures, and never trip a breaker.
type pricingGuard struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*strategy.Subscription]
	cfg      config.PricingConfig
	observer metrics.Observer
	logger   logrus.FieldLogger
}

func newPricingGuard(cfg config.PricingConfig, observer metrics.Observer, logger logrus.FieldLogger) *pricingGuard {
	if observer == nil {
		observer = metrics.Nop()
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = defaultBreakerFailureThreshold
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = defaultBreakerOpenTimeout
	}

	return &pricingGuard{
		breakers: make(map[string]*gobreaker.CircuitBreaker[*strategy.Subscription]),
		cfg:      cfg,
		observer: observer,
		logger:   logger,
	}
}

func (g *pricingGuard) breaker(code string) *gobreaker.CircuitBreaker[*strategy.Subscription] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if breaker, ok := g.breakers[code]; ok {
		return breaker
	}

	threshold := g.cfg.BreakerFailureThreshold
	breaker := gobreaker.NewCircuitBreaker[*strategy.Subscription](gobreaker.Settings{
		Name:        "pricing:" + code,
		MaxRequests: 1,
		Interval:    g.cfg.BreakerInterval,
		Timeout:     g.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("pricing circuit breaker state changed")
			g.observer.RecordBreakerState(name, to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isPricingConfigError(err)
		},
	})
	g.breakers[code] = breaker
	return breaker
}

// run prices through the strategy and maps strategy failures to service errors.
func (g *pricingGuard) run(code string, fn func() (*strategy.Subscription, error)) (*strategy.Subscription, error) {
	start := time.Now()
	sub, err := g.breaker(code).Execute(fn)
	g.observer.RecordPricing(code, time.Since(start), err)
	if err == nil {
		return sub, nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: strategy %s: %v", ErrPricingUnavailable, code, err)
	case errors.Is(err, strategy.ErrScheduleNotFound):
		return nil, fmt.Errorf("%w: %v", ErrScheduleNotFound, err)
	case errors.Is(err, strategy.ErrInvalidOrderLine):
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	case isPricingConfigError(err):
		return nil, err
	default:
		g.logger.WithError(err).WithField("strategy", code).Error("strategy pricing failed")
		return nil, fmt.Errorf("%w: strategy %s: %v", ErrPricingUnavailable, code, err)
	}
}

func isPricingConfigError(err error) bool {
	return errors.Is(err, pricing.ErrInvalidSchedule) ||
		errors.Is(err, pricing.ErrAmbiguousStartDate) ||
		errors.Is(err, pricing.ErrNegativeDuration) ||
		errors.Is(err, strategy.ErrScheduleNotFound) ||
		errors.Is(err, strategy.ErrInvalidOrderLine)
}
