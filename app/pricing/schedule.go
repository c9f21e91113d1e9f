package pricing

import (
	"fmt"
	"time"
)

type StartMoment string

const (
	StartOfBillingInterval StartMoment = "start_of_billing_interval"
	EndOfBillingInterval   StartMoment = "end_of_billing_interval"
	StartTimeOfPurchase    StartMoment = "time_of_purchase"
	StartFixedDate         StartMoment = "fixed_startdate"
)

func (m StartMoment) Valid() bool {
	switch m {
	case StartOfBillingInterval, EndOfBillingInterval, StartTimeOfPurchase, StartFixedDate:
		return true
	default:
		return false
	}
}

// ScheduleParams is the raw, unvalidated form of a Schedule.
type ScheduleParams struct {
	DurationInterval Interval
	DurationCount    int
	BillingInterval  Interval
	BillingCount     int
	StartMoment      StartMoment
	FixedStartDate   *time.Time
	Downpayment      int64
	PaidUpFront      bool
	UseProration     bool
	AutoRenew        bool
}

// Schedule is an immutable, validated recurring plan description.
type Schedule struct {
	params ScheduleParams
}

func NewSchedule(p ScheduleParams) (*Schedule, error) {
	if !p.BillingInterval.Valid() {
		return nil, fmt.Errorf("%w: billing interval %q is not supported", ErrInvalidSchedule, p.BillingInterval)
	}
	if p.BillingCount < 1 {
		return nil, fmt.Errorf("%w: billing count must be >= 1", ErrInvalidSchedule)
	}
	if p.DurationCount < 0 {
		return nil, fmt.Errorf("%w: duration count must be >= 0", ErrInvalidSchedule)
	}
	if p.DurationCount > 0 && !p.DurationInterval.Valid() {
		return nil, fmt.Errorf("%w: duration interval %q is not supported", ErrInvalidSchedule, p.DurationInterval)
	}
	if !p.StartMoment.Valid() {
		return nil, fmt.Errorf("%w: start moment %q is not supported", ErrInvalidSchedule, p.StartMoment)
	}
	if p.StartMoment == StartFixedDate && p.FixedStartDate == nil {
		return nil, fmt.Errorf("%w: fixed start date is required for %s", ErrInvalidSchedule, StartFixedDate)
	}
	if p.StartMoment != StartFixedDate && p.FixedStartDate != nil {
		return nil, fmt.Errorf("%w: fixed start date is only allowed for %s", ErrInvalidSchedule, StartFixedDate)
	}
	if p.Downpayment < 0 {
		return nil, fmt.Errorf("%w: downpayment must be >= 0", ErrInvalidSchedule)
	}

	if p.FixedStartDate != nil {
		fixed := *p.FixedStartDate
		p.FixedStartDate = &fixed
	}
	return &Schedule{params: p}, nil
}

// MustSchedule panics on invalid params; meant for built-in plans.
func MustSchedule(p ScheduleParams) *Schedule {
	s, err := NewSchedule(p)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schedule) DurationInterval() Interval { return s.params.DurationInterval }
func (s *Schedule) DurationCount() int         { return s.params.DurationCount }
func (s *Schedule) BillingInterval() Interval  { return s.params.BillingInterval }
func (s *Schedule) BillingCount() int          { return s.params.BillingCount }
func (s *Schedule) StartMoment() StartMoment   { return s.params.StartMoment }
func (s *Schedule) Downpayment() int64         { return s.params.Downpayment }
func (s *Schedule) PaidUpFront() bool          { return s.params.PaidUpFront }
func (s *Schedule) UseProration() bool         { return s.params.UseProration }
func (s *Schedule) AutoRenew() bool            { return s.params.AutoRenew }

// Open-ended schedules run until canceled (or renewal stops, when AutoRenew is off).
func (s *Schedule) OpenEnded() bool { return s.params.DurationCount == 0 }

func (s *Schedule) FixedStartDate() *time.Time {
	if s.params.FixedStartDate == nil {
		return nil
	}
	fixed := *s.params.FixedStartDate
	return &fixed
}

// Params returns a copy of the validated parameters.
func (s *Schedule) Params() ScheduleParams {
	p := s.params
	p.FixedStartDate = s.FixedStartDate()
	return p
}
