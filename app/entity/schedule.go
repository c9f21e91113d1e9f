package entity

import (
	"time"

	"github.com/vibast-solutions/ms-go-subscriptions/app/pricing"
)

type Schedule struct {
	ID uint64

	Name string

	DurationInterval *string
	DurationCount    int32
	BillingInterval  string
	BillingCount     int32
	StartMoment      string
	FixedStartDate   *time.Time
	Downpayment      int64
	PaidUpFront      bool
	UseProration     bool
	AutoRenew        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Definition validates the stored row into a pricing schedule.
func (s *Schedule) Definition() (*pricing.Schedule, error) {
	params := pricing.ScheduleParams{
		DurationCount:   int(s.DurationCount),
		BillingInterval: pricing.Interval(s.BillingInterval),
		BillingCount:    int(s.BillingCount),
		StartMoment:     pricing.StartMoment(s.StartMoment),
		FixedStartDate:  s.FixedStartDate,
		Downpayment:     s.Downpayment,
		PaidUpFront:     s.PaidUpFront,
		UseProration:    s.UseProration,
		AutoRenew:       s.AutoRenew,
	}
	if s.DurationInterval != nil {
		params.DurationInterval = pricing.Interval(*s.DurationInterval)
	}
	return pricing.NewSchedule(params)
}
