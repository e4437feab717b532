package cli

import (
	"fmt"

	"finadvisor/internal/core"
	"finadvisor/internal/services"
)

// FormatMoney formats an amount with two decimals and a euro sign.
func FormatMoney(m core.Money) string {
	return "€" + m.String()
}

// FormatDaysLeft describes how far away a due date is.
func FormatDaysLeft(days int) string {
	switch {
	case days < -1:
		return fmt.Sprintf("%d days ago", -days)
	case days == -1:
		return "yesterday"
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// FormatStatus colours a reminder status.
func FormatStatus(s services.ReminderStatus) string {
	switch s {
	case services.StatusOverdue:
		return alertStyle.Render(string(s))
	case services.StatusDueToday:
		return warnStyle.Render(string(s))
	default:
		return okStyle.Render(string(s))
	}
}

// FormatFlag renders an advisory boolean as a coloured yes/no.
func FormatFlag(raised bool) string {
	if raised {
		return warnStyle.Render("yes")
	}
	return okStyle.Render("no")
}

// FormatProbability formats a score in [0,1] as a percentage.
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// ReminderRows turns reminders into table rows.
func ReminderRows(rs []services.Reminder) [][]string {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []string{
			r.Bill.Name,
			r.Bill.DueDate.String(),
			FormatMoney(r.Bill.Amount),
			FormatDaysLeft(r.DaysLeft),
			FormatStatus(r.Status),
		})
	}
	return rows
}

// ReminderHeaders matches ReminderRows.
var ReminderHeaders = []string{"Bill", "Due", "Amount", "When", "Status"}
