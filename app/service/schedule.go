package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/entity"
	"github.com/vibast-solutions/ms-go-subscriptions/app/repository"
	"github.com/vibast-solutions/ms-go-subscriptions/app/types"
)

const (
	defaultListLimit = int32(100)
	maxListLimit     = int32(500)
)

type createScheduleRequest interface {
	GetName() string
	GetDurationInterval() string
	GetDurationCount() int32
	GetBillingInterval() string
	GetBillingCount() int32
	GetStartMoment() string
	GetFixedStartDate() string
	GetDownpayment() int64
	GetPaidUpFront() bool
	GetUseProration() bool
	GetAutoRenew() bool
}

type listSchedulesRequest interface {
	GetLimit() int32
	GetOffset() int32
}

type scheduleRepository interface {
	Create(ctx context.Context, schedule *entity.Schedule) error
	FindByID(ctx context.Context, id uint64) (*entity.Schedule, error)
	List(ctx context.Context, limit, offset int32) ([]*entity.Schedule, error)
}

type ScheduleService struct {
	scheduleRepo scheduleRepository
	now          func() time.Time
}

func NewScheduleService(scheduleRepo scheduleRepository) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateSchedule stores a schedule only after it validates as a pricing definition.
func (s *ScheduleService) CreateSchedule(ctx context.Context, req createScheduleRequest) (*entity.Schedule, error) {
	now := s.now()
	schedule := &entity.Schedule{
		Name:            strings.TrimSpace(req.GetName()),
		DurationCount:   req.GetDurationCount(),
		BillingInterval: strings.ToLower(strings.TrimSpace(req.GetBillingInterval())),
		BillingCount:    req.GetBillingCount(),
		StartMoment:     strings.ToLower(strings.TrimSpace(req.GetStartMoment())),
		Downpayment:     req.GetDownpayment(),
		PaidUpFront:     req.GetPaidUpFront(),
		UseProration:    req.GetUseProration(),
		AutoRenew:       req.GetAutoRenew(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if schedule.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if raw := strings.ToLower(strings.TrimSpace(req.GetDurationInterval())); raw != "" {
		schedule.DurationInterval = &raw
	}
	if raw := strings.TrimSpace(req.GetFixedStartDate()); raw != "" {
		fixed, err := types.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: fixed_start_date %q", ErrInvalidRequest, raw)
		}
		schedule.FixedStartDate = &fixed
	}

	if _, err := schedule.Definition(); err != nil {
		return nil, err
	}

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		if errors.Is(err, repository.ErrScheduleAlreadyExists) {
			return nil, ErrScheduleExists
		}
		return nil, err
	}
	return schedule, nil
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id uint64) (*entity.Schedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *ScheduleService) ListSchedules(ctx context.Context, req listSchedulesRequest) ([]*entity.Schedule, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := req.GetOffset()
	if offset < 0 {
		offset = 0
	}

	return s.scheduleRepo.List(ctx, limit, offset)
}
