package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

// Transition is one reconciled webhook: the updated lifecycle record, its event log
// entry and the ledger entry. Subscription and Event may be nil when only the ledger
// needs to move.
type Transition struct {
	Subscription *entity.Subscription
	Event        *entity.SubscriptionEvent
	Ledger       *entity.ProcessedEvent
}

type TransitionStore struct {
	db *sql.DB
}

func NewTransitionStore(db *sql.DB) *TransitionStore {
	return &TransitionStore{db: db}
}

// ApplyTransition writes the transition in a single transaction. A ledger entry that
// already exists rolls everything back with ErrEventAlreadyProcessed.
func (s *TransitionStore) ApplyTransition(ctx context.Context, transition Transition) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if transition.Ledger != nil {
		if err = NewProcessedEventRepository(tx).Create(ctx, transition.Ledger); err != nil {
			return err
		}
	}
	if transition.Subscription != nil {
		if err = NewSubscriptionRepository(tx).Update(ctx, transition.Subscription); err != nil {
			return err
		}
	}
	if transition.Event != nil {
		if transition.Subscription != nil {
			transition.Event.SubscriptionID = transition.Subscription.ID
		}
		if err = NewSubscriptionEventRepository(tx).Create(ctx, transition.Event); err != nil {
			return err
		}
	}

	return tx.Commit()
}
