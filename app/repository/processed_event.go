package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

var ErrEventAlreadyProcessed = errors.New("event already processed")

type ProcessedEventRepository struct {
	db DBTX
}

func NewProcessedEventRepository(db DBTX) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: db}
}

// Exists reports whether eventID was recorded at or after since.
func (r *ProcessedEventRepository) Exists(ctx context.Context, eventID string, since time.Time) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM processed_events
		WHERE event_id = ? AND processed_at >= ?
	`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, eventID, since).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ProcessedEventRepository) Create(ctx context.Context, event *entity.ProcessedEvent) error {
	query := `
		INSERT INTO processed_events (order_code, event_id, processed_at)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, event.OrderCode, event.EventID, event.ProcessedAt); err != nil {
		if isDuplicateEntryError(err) {
			return ErrEventAlreadyProcessed
		}
		return err
	}
	return nil
}

// DeleteOlderThan removes at most limit entries processed before cutoff.
func (r *ProcessedEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int32) (int64, error) {
	query := `
		DELETE FROM processed_events
		WHERE processed_at < ?
		ORDER BY processed_at ASC
		LIMIT ?
	`

	result, err := r.db.ExecContext(ctx, query, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
