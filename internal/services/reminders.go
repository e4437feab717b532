package services

import (
	"cmp"
	"iter"
	"slices"

	"finadvisor/internal/core"
)

// DefaultReminderWindow is the number of days ahead a bill is flagged.
const DefaultReminderWindow = 7

// ReminderStatus tells an overdue bill apart from one due today or later.
type ReminderStatus string

const (
	StatusOverdue  ReminderStatus = "overdue"
	StatusDueToday ReminderStatus = "due_today"
	StatusUpcoming ReminderStatus = "upcoming"
)

// Reminder is a bill inside the reminder window.
type Reminder struct {
	Bill     core.Bill
	DaysLeft int
	Status   ReminderStatus
}

// StatusFor classifies a days-left value.
func StatusFor(daysLeft int) ReminderStatus {
	switch {
	case daysLeft < 0:
		return StatusOverdue
	case daysLeft == 0:
		return StatusDueToday
	default:
		return StatusUpcoming
	}
}

// DueSoon yields the bills due within windowDays of today, most urgent
// first. Overdue bills are always included. Bills with the same days left
// keep their input order. The sequence is lazy and can be ranged over any
// number of times; each pass re-evaluates the bills captured at call time.
func DueSoon(bills []core.Bill, today core.Date, windowDays int) iter.Seq[Reminder] {
	bills = slices.Clone(bills)
	return func(yield func(Reminder) bool) {
		due := make([]Reminder, 0, len(bills))
		for _, b := range bills {
			days := today.DaysUntil(b.DueDate)
			if days > windowDays {
				continue
			}
			due = append(due, Reminder{Bill: b, DaysLeft: days, Status: StatusFor(days)})
		}
		slices.SortStableFunc(due, func(a, b Reminder) int {
			return cmp.Compare(a.DaysLeft, b.DaysLeft)
		})
		for _, r := range due {
			if !yield(r) {
				return
			}
		}
	}
}
