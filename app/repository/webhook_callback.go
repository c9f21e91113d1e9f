package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

var ErrWebhookCallbackNotFound = errors.New("webhook callback not found")

type WebhookCallbackRepository struct {
	db DBTX
}

func NewWebhookCallbackRepository(db DBTX) *WebhookCallbackRepository {
	return &WebhookCallbackRepository{db: db}
}

func (r *WebhookCallbackRepository) Create(ctx context.Context, callback *entity.WebhookCallback) error {
	query := `
		INSERT INTO webhook_callbacks (
			subscription_id, provider, event_id, order_code, signature, payload_json,
			status, attempts, next_at, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(callback.SubscriptionID),
		callback.Provider,
		nullableStringValue(callback.EventID),
		nullableStringValue(callback.OrderCode),
		callback.Signature,
		callback.PayloadJSON,
		callback.Status,
		callback.Attempts,
		nullableTimeValue(callback.NextAt),
		nullableStringValue(callback.Error),
		callback.CreatedAt,
		callback.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	callback.ID = uint64(id)

	return nil
}

func (r *WebhookCallbackRepository) Update(ctx context.Context, callback *entity.WebhookCallback) error {
	query := `
		UPDATE webhook_callbacks SET
			subscription_id = ?,
			event_id = ?,
			order_code = ?,
			status = ?,
			attempts = ?,
			next_at = ?,
			error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(callback.SubscriptionID),
		nullableStringValue(callback.EventID),
		nullableStringValue(callback.OrderCode),
		callback.Status,
		callback.Attempts,
		nullableTimeValue(callback.NextAt),
		nullableStringValue(callback.Error),
		callback.UpdatedAt,
		callback.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWebhookCallbackNotFound
	}
	return nil
}

// ListDueRetry returns requeued callbacks whose next attempt is due, oldest first.
func (r *WebhookCallbackRepository) ListDueRetry(ctx context.Context, now time.Time, limit int32) ([]*entity.WebhookCallback, error) {
	query := `
		SELECT id, subscription_id, provider, event_id, order_code, signature, payload_json,
			status, attempts, next_at, error, created_at, updated_at
		FROM webhook_callbacks
		WHERE status = ?
		  AND next_at IS NOT NULL
		  AND next_at <= ?
		ORDER BY next_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.WebhookCallbackRetryPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	callbacks := make([]*entity.WebhookCallback, 0)
	for rows.Next() {
		item := &entity.WebhookCallback{}
		if err := scanWebhookCallback(rows, item); err != nil {
			return nil, err
		}
		callbacks = append(callbacks, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return callbacks, nil
}

func scanWebhookCallback(scan rowScanner, callback *entity.WebhookCallback) error {
	var subscriptionID sql.NullInt64
	var eventID sql.NullString
	var orderCode sql.NullString
	var nextAt sql.NullTime
	var lastErr sql.NullString

	err := scan.Scan(
		&callback.ID,
		&subscriptionID,
		&callback.Provider,
		&eventID,
		&orderCode,
		&callback.Signature,
		&callback.PayloadJSON,
		&callback.Status,
		&callback.Attempts,
		&nextAt,
		&lastErr,
		&callback.CreatedAt,
		&callback.UpdatedAt,
	)
	if err != nil {
		return err
	}

	callback.SubscriptionID = uint64PtrFromNull(subscriptionID)
	callback.EventID = stringPtrFromNull(eventID)
	callback.OrderCode = stringPtrFromNull(orderCode)
	callback.NextAt = timePtrFromNull(nextAt)
	callback.Error = stringPtrFromNull(lastErr)
	return nil
}
