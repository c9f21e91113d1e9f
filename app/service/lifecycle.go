package service

import (
	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

const (
	OutcomeApplied          = "applied"
	OutcomeUnchanged        = "unchanged"
	OutcomeIgnored          = "ignored"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeUnresolvable     = "unresolvable"
	OutcomeRequeued         = "requeued"
	OutcomeRejected         = "rejected"
)

const eventTypeAmountMismatch = "amount_mismatch"

// transition is the pure decision for one event against one lifecycle record.
type transition struct {
	outcome   string
	reason    string
	to        entity.SubscriptionState
	eventType string
	// cycles is the CyclesPaid value after the transition.
	cycles int32
	// amountUnknown is set when a charge could not be checked against the expected amount.
	amountUnknown bool
}

// decideTransition applies the lifecycle table:
//
//	charge_succeeded  pending_activation|renewing|payment_failed -> active (one more paid cycle)
//	charge_failed     pending_activation|active|renewing         -> payment_failed
//	renewal_started   active|pending_activation                  -> renewing (auto-renewing records only)
//	canceled          any                                        -> canceled
//
// Events older than the last applied one are ignored, except cancellation.
func decideTransition(sub *entity.Subscription, event *entity.WebhookEvent) transition {
	from := sub.State
	t := transition{to: from, eventType: string(event.Kind), cycles: sub.CyclesPaid}

	if event.Kind != entity.EventCanceled && sub.LastEventCreated != nil && event.Created.Before(*sub.LastEventCreated) {
		return t.ignore("event is older than the last applied event")
	}

	switch event.Kind {
	case entity.EventChargeSucceeded:
		switch from {
		case entity.StatePendingActivation, entity.StateRenewing, entity.StatePaymentFailed:
			charged, ok := event.ChargedAmount()
			if !ok {
				t.amountUnknown = true
			} else if charged != sub.ExpectedChargeAmount() {
				t.to = entity.StatePaymentFailed
				t.eventType = eventTypeAmountMismatch
				return t.apply()
			}
			t.to = entity.StateActive
			t.cycles = sub.CyclesPaid + 1
			return t.apply()
		case entity.StateActive:
			return t.unchanged("subscription is already active")
		default:
			return t.ignore("subscription is canceled")
		}

	case entity.EventChargeFailed:
		switch from {
		case entity.StatePendingActivation, entity.StateActive, entity.StateRenewing:
			t.to = entity.StatePaymentFailed
			return t.apply()
		case entity.StatePaymentFailed:
			return t.unchanged("payment already failed")
		default:
			return t.ignore("subscription is canceled")
		}

	case entity.EventRenewalStarted:
		if !sub.AutoRenew {
			return t.ignore("subscription does not auto renew")
		}
		switch from {
		case entity.StateActive:
			t.to = entity.StateRenewing
			return t.apply()
		case entity.StatePendingActivation:
			t.to = entity.StateRenewing
			t.cycles = max(1, sub.CyclesPaid)
			return t.apply()
		case entity.StateRenewing:
			return t.unchanged("renewal already started")
		default:
			return t.ignore("renewal does not apply in state " + string(from))
		}

	case entity.EventCanceled:
		if from == entity.StateCanceled {
			return t.unchanged("subscription is already canceled")
		}
		t.to = entity.StateCanceled
		return t.apply()

	default:
		return t.ignore("unhandled event type " + event.Type)
	}
}

func (t transition) apply() transition {
	t.outcome = OutcomeApplied
	return t
}

func (t transition) unchanged(reason string) transition {
	t.outcome = OutcomeUnchanged
	t.reason = reason
	return t
}

func (t transition) ignore(reason string) transition {
	t.outcome = OutcomeIgnored
	t.reason = reason
	return t
}
