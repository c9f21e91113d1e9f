package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

const subscriptionColumns = `
	id, channel_token, order_code, payment_method_code, state,
	amount_due_now, first_recurring_amount, recurring_amount, cycles_paid, auto_renew,
	provider_subscription_id, last_event_id, last_event_created,
	created_at, updated_at
`

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert creates the order record or refreshes its expected amounts. State and event
// bookkeeping of an existing record are left alone.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			channel_token, order_code, payment_method_code, state,
			amount_due_now, first_recurring_amount, recurring_amount, cycles_paid, auto_renew,
			provider_subscription_id, last_event_id, last_event_created,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			payment_method_code = VALUES(payment_method_code),
			amount_due_now = VALUES(amount_due_now),
			first_recurring_amount = VALUES(first_recurring_amount),
			recurring_amount = VALUES(recurring_amount),
			auto_renew = VALUES(auto_renew),
			updated_at = VALUES(updated_at)
	`

	result, err := r.db.ExecContext(ctx, query,
		sub.ChannelToken,
		sub.OrderCode,
		sub.PaymentMethodCode,
		string(sub.State),
		sub.AmountDueNow,
		sub.FirstRecurringAmount,
		sub.RecurringAmount,
		sub.CyclesPaid,
		sub.AutoRenew,
		nullableStringValue(sub.ProviderSubscriptionID),
		nullableStringValue(sub.LastEventID),
		nullableTimeValue(sub.LastEventCreated),
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sub.ID = uint64(id)
	return nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *entity.Subscription) error {
	query := `
		UPDATE subscriptions SET
			payment_method_code = ?,
			state = ?,
			amount_due_now = ?,
			first_recurring_amount = ?,
			recurring_amount = ?,
			cycles_paid = ?,
			auto_renew = ?,
			provider_subscription_id = ?,
			last_event_id = ?,
			last_event_created = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		sub.PaymentMethodCode,
		string(sub.State),
		sub.AmountDueNow,
		sub.FirstRecurringAmount,
		sub.RecurringAmount,
		sub.CyclesPaid,
		sub.AutoRenew,
		nullableStringValue(sub.ProviderSubscriptionID),
		nullableStringValue(sub.LastEventID),
		nullableTimeValue(sub.LastEventCreated),
		sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uint64) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`

	sub := &entity.Subscription{}
	if err := scanSubscription(r.db.QueryRowContext(ctx, query, id), sub); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *SubscriptionRepository) FindByOrder(ctx context.Context, channelToken, orderCode string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE channel_token = ? AND order_code = ? LIMIT 1`

	sub := &entity.Subscription{}
	if err := scanSubscription(r.db.QueryRowContext(ctx, query, channelToken, orderCode), sub); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return sub, nil
}

func scanSubscription(scan rowScanner, sub *entity.Subscription) error {
	var state string
	var providerSubscriptionID sql.NullString
	var lastEventID sql.NullString
	var lastEventCreated sql.NullTime

	err := scan.Scan(
		&sub.ID,
		&sub.ChannelToken,
		&sub.OrderCode,
		&sub.PaymentMethodCode,
		&state,
		&sub.AmountDueNow,
		&sub.FirstRecurringAmount,
		&sub.RecurringAmount,
		&sub.CyclesPaid,
		&sub.AutoRenew,
		&providerSubscriptionID,
		&lastEventID,
		&lastEventCreated,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return err
	}

	sub.State = entity.SubscriptionState(state)
	sub.ProviderSubscriptionID = stringPtrFromNull(providerSubscriptionID)
	sub.LastEventID = stringPtrFromNull(lastEventID)
	sub.LastEventCreated = timePtrFromNull(lastEventCreated)
	return nil
}
