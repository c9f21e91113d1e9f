package pricing

import (
	"fmt"
	"strings"
	"time"
)

type Interval string

const (
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

func ParseInterval(raw string) (Interval, error) {
	interval := Interval(strings.ToLower(strings.TrimSpace(raw)))
	if !interval.Valid() {
		return "", fmt.Errorf("%w: unknown interval %q", ErrInvalidSchedule, raw)
	}
	return interval, nil
}

func (i Interval) Valid() bool {
	switch i {
	case IntervalWeek, IntervalMonth, IntervalYear:
		return true
	default:
		return false
	}
}

// StartOfInterval returns midnight of the first day of the calendar unit containing t:
// Monday for weeks, the 1st for months, January 1st for years.
func StartOfInterval(t time.Time, interval Interval) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch interval {
	case IntervalWeek:
		midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case IntervalMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case IntervalYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// AddInterval adds count units to t. Month and year arithmetic clamps to the last
// day of the target month instead of overflowing (Jan 31 + 1 month = Feb 28/29).
func AddInterval(t time.Time, interval Interval, count int) time.Time {
	switch interval {
	case IntervalWeek:
		return t.AddDate(0, 0, 7*count)
	case IntervalMonth:
		return addMonthsClamped(t, count)
	case IntervalYear:
		return addMonthsClamped(t, 12*count)
	default:
		return t
	}
}

// IntervalInstance returns the [start, end) window of count units, aligned on the
// calendar unit, that contains ref.
func IntervalInstance(interval Interval, count int, ref time.Time) (time.Time, time.Time) {
	if count < 1 {
		count = 1
	}
	start := StartOfInterval(ref, interval)
	return start, AddInterval(start, interval, count)
}

// DaysInInterval is the real calendar length of the interval instance containing ref.
func DaysInInterval(interval Interval, count int, ref time.Time) int {
	start, end := IntervalInstance(interval, count, ref)
	return calendarDays(start, end)
}

// DaysBetween counts the whole days elapsed from `from` to `to`. Partial days are
// truncated; the result is negative when `to` is before `from`.
func DaysBetween(from, to time.Time) int {
	to = to.In(from.Location())
	days := calendarDays(from, to)
	switch {
	case days > 0 && clockOffset(to) < clockOffset(from):
		days--
	case days < 0 && clockOffset(to) > clockOffset(from):
		days++
	}
	return days
}

func calendarDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func clockOffset(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	ty, tm, _ := first.Date()
	if last := daysInMonth(ty, tm); d > last {
		d = last
	}
	return time.Date(ty, tm, d, h, mi, s, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
