package models

import (
	"fmt"
	"strings"
	"time"
)

// Period names a trailing window used for summing expenses.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// Window widths in calendar days. These are fixed-width windows, not calendar weeks or months.
const (
	WeekDays  = 7
	MonthDays = 30
)

// ParsePeriod maps a query value onto a Period. An empty value means PeriodAll.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodAll, nil
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	default:
		return "", &ValidationError{Field: "period", Reason: fmt.Sprintf("unknown period %q", s)}
	}
}

// Range returns the inclusive window [now - period, now] for the calendar day of now.
func (p Period) Range(now time.Time) DateRange {
	today := DateOf(now)
	switch p {
	case PeriodToday:
		return DateRange{From: today, To: today}
	case PeriodWeek:
		return DateRange{From: today.AddDays(-WeekDays), To: today}
	case PeriodMonth:
		return DateRange{From: today.AddDays(-MonthDays), To: today}
	default:
		return DateRange{}
	}
}

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From Date
	To   Date
}

// MonthRange covers every day of the given calendar month.
func MonthRange(year int, month time.Month) DateRange {
	first := NewDate(year, month, 1)
	return DateRange{From: first, To: Date{Time: first.AddDate(0, 1, -1)}}
}

// IsZero reports whether the range is unbounded on both sides.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}
