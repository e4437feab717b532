package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finadvisor/internal/amqp"
	"finadvisor/internal/core"
)

// ReminderStore is the persistence the reminder processor needs.
type ReminderStore interface {
	// ListActiveBills returns unpaid bills with DueDate set to the
	// occurrence awaiting payment.
	ListActiveBills(ctx context.Context) ([]core.Bill, error)
	// ReminderSent reports whether billID was already announced on day.
	ReminderSent(ctx context.Context, billID int64, day core.Date) (bool, error)
	// RecordReminder marks billID as announced on day.
	RecordReminder(ctx context.Context, billID int64, day core.Date, status string) error
}

// ReminderPublisher delivers reminder messages to the notifier.
type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// ReminderProcessor announces bills entering the reminder window, at most
// once per bill per day.
type ReminderProcessor struct {
	store     ReminderStore
	publisher ReminderPublisher
	window    int
}

// NewReminderProcessor creates a new reminder processor
func NewReminderProcessor(store ReminderStore, publisher ReminderPublisher, windowDays int) *ReminderProcessor {
	return &ReminderProcessor{
		store:     store,
		publisher: publisher,
		window:    windowDays,
	}
}

// ProcessDueReminders publishes one message per due bill not yet announced
// today and returns how many were published. Failures on a single bill are
// logged and skipped so one bad row does not starve the others.
func (p *ReminderProcessor) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now)
	bills, err := p.store.ListActiveBills(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active bills: %w", err)
	}

	slog.InfoContext(ctx, "Processing bill reminders",
		"total_active", len(bills),
		"window_days", p.window,
		"processing_date", today.String())

	published := 0
	for r := range DueSoon(bills, today, p.window) {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		sent, err := p.store.ReminderSent(ctx, r.Bill.ID, today)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to check reminder log",
				"bill_id", r.Bill.ID,
				"error", err)
			continue
		}
		if sent {
			continue
		}

		msg := amqp.NewReminderMessage(r.Bill.ID, r.Bill.Name, r.Bill.DueDate.String(),
			r.Bill.Amount.Cents, r.DaysLeft, string(r.Status))
		if err := p.publisher.PublishReminder(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reminder",
				"bill_id", r.Bill.ID,
				"name", r.Bill.Name,
				"error", err)
			continue
		}

		if err := p.store.RecordReminder(ctx, r.Bill.ID, today, string(r.Status)); err != nil {
			slog.ErrorContext(ctx, "Failed to record reminder",
				"bill_id", r.Bill.ID,
				"error", err)
			// Continue anyway - the message is already out
		}

		published++
		slog.InfoContext(ctx, "Bill reminder sent",
			"bill_id", r.Bill.ID,
			"name", r.Bill.Name,
			"due_date", r.Bill.DueDate.String(),
			"days_left", r.DaysLeft,
			"status", r.Status)
	}

	slog.InfoContext(ctx, "Bill reminder processing complete",
		"published", published,
		"total_checked", len(bills))

	return published, nil
}
