package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for pricing and webhook reconciliation.
type Observer interface {
	RecordWebhook(outcome string, duration time.Duration)
	RecordTransition(from, to string)
	RecordPricing(strategy string, duration time.Duration, err error)
	RecordLockWait(duration time.Duration, err error)
	RecordBreakerState(name, state string)
}

type PrometheusObserver struct {
	webhookEvents    *prometheus.CounterVec
	webhookDuration  *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
	pricingDuration  *prometheus.HistogramVec
	pricingErrors    *prometheus.CounterVec
	lockWait         prometheus.Histogram
	lockFailures     prometheus.Counter
	breakerStateInfo *prometheus.CounterVec
}

func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "subscriptions"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{}
	var err error
	if o.webhookEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Webhook events handled, by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if o.webhookDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_duration_seconds",
		Help:      "Latency of webhook reconciliation, by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if o.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_transitions_total",
		Help:      "Committed subscription state transitions.",
	}, []string{"from", "to"})); err != nil {
		return nil, err
	}
	if o.pricingDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pricing_duration_seconds",
		Help:      "Latency of strategy pricing calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	if o.pricingErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pricing_errors_total",
		Help:      "Failed strategy pricing calls.",
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	if o.lockWait, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_lock_wait_seconds",
		Help:      "Time spent acquiring per-order locks.",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if o.lockFailures, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_lock_failures_total",
		Help:      "Per-order lock acquisitions that timed out or failed.",
	})); err != nil {
		return nil, err
	}
	if o.breakerStateInfo, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_state_changes_total",
		Help:      "Circuit breaker state changes, by breaker and new state.",
	}, []string{"breaker", "state"})); err != nil {
		return nil, err
	}
	return o, nil
}

// register returns the already registered collector when an identical one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("register subscriptions metric: %w", err)
	}
	return collector, nil
}

func (o *PrometheusObserver) RecordWebhook(outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	o.webhookEvents.WithLabelValues(outcome).Inc()
	o.webhookDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (o *PrometheusObserver) RecordTransition(from, to string) {
	if o == nil {
		return
	}
	o.transitions.WithLabelValues(from, to).Inc()
}

func (o *PrometheusObserver) RecordPricing(strategy string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.pricingDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if err != nil {
		o.pricingErrors.WithLabelValues(strategy).Inc()
	}
}

func (o *PrometheusObserver) RecordLockWait(duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.lockWait.Observe(duration.Seconds())
	if err != nil {
		o.lockFailures.Inc()
	}
}

func (o *PrometheusObserver) RecordBreakerState(name, state string) {
	if o == nil {
		return
	}
	o.breakerStateInfo.WithLabelValues(name, state).Inc()
}

type nopObserver struct{}

// Nop returns an Observer that discards everything.
func Nop() Observer { return nopObserver{} }

func (nopObserver) RecordWebhook(string, time.Duration) {}

func (nopObserver) RecordTransition(string, string) {}

func (nopObserver) RecordPricing(string, time.Duration, error) {}

func (nopObserver) RecordLockWait(time.Duration, error) {}

func (nopObserver) RecordBreakerState(string, string) {}
