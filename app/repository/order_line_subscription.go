package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

const orderLineSubscriptionColumns = `
	id, channel_token, order_code, order_line_id, variant_id, strategy_code, quantity,
	subscription_ids_json, correlation_hash,
	price_includes_tax, amount_due_now, original_recurring_amount, recurring_amount, first_recurring_amount,
	billing_interval, billing_interval_count, start_date, end_date, auto_renew,
	discounts_json, created_at, updated_at
`

type OrderLineSubscriptionRepository struct {
	db DBTX
}

func NewOrderLineSubscriptionRepository(db DBTX) *OrderLineSubscriptionRepository {
	return &OrderLineSubscriptionRepository{db: db}
}

// Upsert stores the pricing of one order line, replacing an earlier definition of the same line.
func (r *OrderLineSubscriptionRepository) Upsert(ctx context.Context, line *entity.OrderLineSubscription) error {
	subscriptionIDs, err := serializeStrings(line.SubscriptionIDs)
	if err != nil {
		return err
	}
	discounts, err := serializeDiscounts(line.Discounts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_line_subscriptions (
			channel_token, order_code, order_line_id, variant_id, strategy_code, quantity,
			subscription_ids_json, correlation_hash,
			price_includes_tax, amount_due_now, original_recurring_amount, recurring_amount, first_recurring_amount,
			billing_interval, billing_interval_count, start_date, end_date, auto_renew,
			discounts_json, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			variant_id = VALUES(variant_id),
			strategy_code = VALUES(strategy_code),
			quantity = VALUES(quantity),
			subscription_ids_json = VALUES(subscription_ids_json),
			correlation_hash = VALUES(correlation_hash),
			price_includes_tax = VALUES(price_includes_tax),
			amount_due_now = VALUES(amount_due_now),
			original_recurring_amount = VALUES(original_recurring_amount),
			recurring_amount = VALUES(recurring_amount),
			first_recurring_amount = VALUES(first_recurring_amount),
			billing_interval = VALUES(billing_interval),
			billing_interval_count = VALUES(billing_interval_count),
			start_date = VALUES(start_date),
			end_date = VALUES(end_date),
			auto_renew = VALUES(auto_renew),
			discounts_json = VALUES(discounts_json),
			updated_at = VALUES(updated_at)
	`

	result, err := r.db.ExecContext(ctx, query,
		line.ChannelToken,
		line.OrderCode,
		line.OrderLineID,
		line.VariantID,
		line.StrategyCode,
		line.Quantity,
		subscriptionIDs,
		line.CorrelationHash,
		line.PriceIncludesTax,
		line.AmountDueNow,
		line.OriginalRecurringAmount,
		line.RecurringAmount,
		line.FirstRecurringAmount,
		nullableStringValue(line.Interval),
		nullableInt32Value(line.IntervalCount),
		nullableTimeValue(line.StartDate),
		nullableTimeValue(line.EndDate),
		line.AutoRenew,
		discounts,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	line.ID = uint64(id)
	return nil
}

func (r *OrderLineSubscriptionRepository) FindByOrderLine(ctx context.Context, channelToken, orderCode, orderLineID string) (*entity.OrderLineSubscription, error) {
	query := `SELECT ` + orderLineSubscriptionColumns + `
		FROM order_line_subscriptions
		WHERE channel_token = ? AND order_code = ? AND order_line_id = ?
		LIMIT 1
	`

	line := &entity.OrderLineSubscription{}
	if err := scanOrderLineSubscription(r.db.QueryRowContext(ctx, query, channelToken, orderCode, orderLineID), line); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return line, nil
}

func (r *OrderLineSubscriptionRepository) ListByOrder(ctx context.Context, channelToken, orderCode string) ([]*entity.OrderLineSubscription, error) {
	query := `SELECT ` + orderLineSubscriptionColumns + `
		FROM order_line_subscriptions
		WHERE channel_token = ? AND order_code = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, channelToken, orderCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]*entity.OrderLineSubscription, 0)
	for rows.Next() {
		item := &entity.OrderLineSubscription{}
		if err := scanOrderLineSubscription(rows, item); err != nil {
			return nil, err
		}
		lines = append(lines, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func scanOrderLineSubscription(scan rowScanner, line *entity.OrderLineSubscription) error {
	var subscriptionIDs string
	var interval sql.NullString
	var intervalCount sql.NullInt32
	var startDate sql.NullTime
	var endDate sql.NullTime
	var discounts string

	err := scan.Scan(
		&line.ID,
		&line.ChannelToken,
		&line.OrderCode,
		&line.OrderLineID,
		&line.VariantID,
		&line.StrategyCode,
		&line.Quantity,
		&subscriptionIDs,
		&line.CorrelationHash,
		&line.PriceIncludesTax,
		&line.AmountDueNow,
		&line.OriginalRecurringAmount,
		&line.RecurringAmount,
		&line.FirstRecurringAmount,
		&interval,
		&intervalCount,
		&startDate,
		&endDate,
		&line.AutoRenew,
		&discounts,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		return err
	}

	line.Interval = stringPtrFromNull(interval)
	line.IntervalCount = int32PtrFromNull(intervalCount)
	line.StartDate = timePtrFromNull(startDate)
	line.EndDate = timePtrFromNull(endDate)

	if line.SubscriptionIDs, err = parseStrings(subscriptionIDs); err != nil {
		return err
	}
	if line.Discounts, err = parseDiscounts(discounts); err != nil {
		return err
	}
	return nil
}
