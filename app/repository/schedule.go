package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
)

var ErrScheduleAlreadyExists = errors.New("schedule already exists")

const scheduleColumns = `
	id, name, duration_interval, duration_count, billing_interval, billing_count,
	start_moment, fixed_start_date, downpayment, paid_up_front, use_proration, auto_renew,
	created_at, updated_at
`

type ScheduleRepository struct {
	db DBTX
}

func NewScheduleRepository(db DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule *entity.Schedule) error {
	query := `
		INSERT INTO schedules (
			name, duration_interval, duration_count, billing_interval, billing_count,
			start_moment, fixed_start_date, downpayment, paid_up_front, use_proration, auto_renew,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		schedule.Name,
		nullableStringValue(schedule.DurationInterval),
		schedule.DurationCount,
		schedule.BillingInterval,
		schedule.BillingCount,
		schedule.StartMoment,
		nullableTimeValue(schedule.FixedStartDate),
		schedule.Downpayment,
		schedule.PaidUpFront,
		schedule.UseProration,
		schedule.AutoRenew,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrScheduleAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	schedule.ID = uint64(id)
	return nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id uint64) (*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`

	schedule := &entity.Schedule{}
	if err := scanSchedule(r.db.QueryRowContext(ctx, query, id), schedule); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *ScheduleRepository) List(ctx context.Context, limit, offset int32) ([]*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY id DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*entity.Schedule, 0)
	for rows.Next() {
		item := &entity.Schedule{}
		if err := scanSchedule(rows, item); err != nil {
			return nil, err
		}
		schedules = append(schedules, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedules, nil
}

func scanSchedule(scan rowScanner, schedule *entity.Schedule) error {
	var durationInterval sql.NullString
	var fixedStartDate sql.NullTime

	err := scan.Scan(
		&schedule.ID,
		&schedule.Name,
		&durationInterval,
		&schedule.DurationCount,
		&schedule.BillingInterval,
		&schedule.BillingCount,
		&schedule.StartMoment,
		&fixedStartDate,
		&schedule.Downpayment,
		&schedule.PaidUpFront,
		&schedule.UseProration,
		&schedule.AutoRenew,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return err
	}

	schedule.DurationInterval = stringPtrFromNull(durationInterval)
	schedule.FixedStartDate = timePtrFromNull(fixedStartDate)
	return nil
}
