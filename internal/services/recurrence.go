package services

import (
	"fmt"
	"time"

	"sismobi/internal/core"
)

// PeriodAdvancer moves a recurring transaction's date forward by one period.
// Each recurrence frequency has its own implementation.
type PeriodAdvancer interface {
	// Next returns the occurrence after last. anchorDay is the day of month of
	// the chain's first occurrence; calendar strategies return to it after a
	// short month forced a clamp.
	Next(last time.Time, anchorDay int) time.Time
}

// DailyAdvancer advances by one day.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(last time.Time, _ int) time.Time {
	return last.AddDate(0, 0, 1)
}

// WeeklyAdvancer advances by seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(last time.Time, _ int) time.Time {
	return last.AddDate(0, 0, 7)
}

// MonthlyAdvancer advances to the anchor day of the following month, clamped to
// its last day (Jan 31 -> Feb 29 -> Mar 31).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(last time.Time, anchorDay int) time.Time {
	return clampedDate(last, last.Year(), last.Month()+1, anchorDay)
}

// YearlyAdvancer advances to the same month and anchor day of the following year.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(last time.Time, anchorDay int) time.Time {
	return clampedDate(last, last.Year()+1, last.Month(), anchorDay)
}

// clampedDate builds year/month/day with the time of day of ref, clamping day
// to the month length. Month overflow is normalised first.
func clampedDate(ref time.Time, year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}

var periodAdvancers = map[core.RepetitionTypes]PeriodAdvancer{
	core.Daily:   DailyAdvancer{},
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// GetPeriodAdvancer returns the advancer for a frequency.
func GetPeriodAdvancer(frequency core.RepetitionTypes) (PeriodAdvancer, error) {
	a, ok := periodAdvancers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return a, nil
}
