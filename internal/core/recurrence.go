// This file adapts the per-frequency strategy registry to recurring bills.
// Each frequency knows how to find the next due date aligned to the bill's
// anchor date; month-end anchors are clamped to shorter months.

package core

import (
	"fmt"
	"time"
)

// RecurrenceStrategy finds occurrences of a recurring bill.
type RecurrenceStrategy interface {
	// Next returns the first occurrence aligned to anchor that falls
	// strictly after the given date, never earlier than anchor itself.
	Next(anchor, after Date) Date
}

// DailyRecurrence repeats every calendar day.
type DailyRecurrence struct{}

func (DailyRecurrence) Next(anchor, after Date) Date {
	if after.Before(anchor.Time) {
		return anchor
	}
	return after.AddDays(1)
}

// WeeklyRecurrence repeats every 7 days from the anchor.
type WeeklyRecurrence struct{}

func (WeeklyRecurrence) Next(anchor, after Date) Date {
	if after.Before(anchor.Time) {
		return anchor
	}
	weeks := anchor.DaysUntil(after)/7 + 1
	return anchor.AddDays(weeks * 7)
}

// MonthlyRecurrence repeats on the anchor's day of the month.
type MonthlyRecurrence struct{}

func (MonthlyRecurrence) Next(anchor, after Date) Date {
	if after.Before(anchor.Time) {
		return anchor
	}
	year, month := after.Year(), after.Month()
	for {
		candidate := clampedDate(year, month, anchor.Day())
		if candidate.After(after.Time) {
			return candidate
		}
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
}

// YearlyRecurrence repeats on the anchor's month and day.
type YearlyRecurrence struct{}

func (YearlyRecurrence) Next(anchor, after Date) Date {
	if after.Before(anchor.Time) {
		return anchor
	}
	for year := after.Year(); ; year++ {
		candidate := clampedDate(year, anchor.Month(), anchor.Day())
		if candidate.After(after.Time) {
			return candidate
		}
	}
}

// clampedDate builds year-month-day, moving days past the end of the month
// to the month's last day.
func clampedDate(year, month, day int) Date {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return NewDate(year, month, day)
}

var recurrenceStrategies = map[RepetitionTypes]RecurrenceStrategy{
	Daily:   DailyRecurrence{},
	Weekly:  WeeklyRecurrence{},
	Monthly: MonthlyRecurrence{},
	Yearly:  YearlyRecurrence{},
}

// GetRecurrence returns the strategy for a repetition type.
func GetRecurrence(every RepetitionTypes) (RecurrenceStrategy, error) {
	s, ok := recurrenceStrategies[every]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRepetition, every)
	}
	return s, nil
}

// CurrentDueDate returns the occurrence of b that is awaiting payment. For
// one-off bills and recurring bills never paid this is the anchor DueDate;
// otherwise it is the first occurrence after LastPaid. An unpaid past
// occurrence is returned as is, so it shows up as overdue.
func CurrentDueDate(b Bill) (Date, error) {
	if !b.IsRecurring() || b.LastPaid.IsEmpty() {
		return b.DueDate, nil
	}
	s, err := GetRecurrence(b.Every)
	if err != nil {
		return Date{}, err
	}
	return s.Next(b.DueDate, b.LastPaid), nil
}
