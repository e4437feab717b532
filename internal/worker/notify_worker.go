// Package worker holds the message handlers run by the background workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"finadvisor/internal/amqp"
	"finadvisor/internal/cache"
	"finadvisor/internal/core"
	applog "finadvisor/internal/log"
	"finadvisor/internal/storage"
)

// BillLookup resolves a bill by ID. Reminders for bills that no longer
// exist are dropped.
type BillLookup interface {
	GetBill(ctx context.Context, id int64) (core.Bill, error)
}

// Sink delivers a reminder to the user.
type Sink interface {
	Deliver(ctx context.Context, msg *amqp.ReminderMessage) error
}

// LogSink delivers reminders by logging them.
type LogSink struct {
	Logger *applog.Logger
}

func (s LogSink) Deliver(ctx context.Context, msg *amqp.ReminderMessage) error {
	s.Logger.InfoContext(ctx, ReminderText(msg),
		applog.FieldBillID, msg.BillID,
		applog.FieldBillName, msg.BillName,
		applog.FieldDaysLeft, msg.DaysLeft,
		"status", msg.Status,
		"due_date", msg.DueDate)
	return nil
}

// ReminderText renders the user-facing reminder line.
func ReminderText(msg *amqp.ReminderMessage) string {
	amount := core.Money{Cents: msg.AmountCents}.String()
	switch {
	case msg.DaysLeft < 0:
		return fmt.Sprintf("%s (%s) is overdue by %d day(s), it was due %s", msg.BillName, amount, -msg.DaysLeft, msg.DueDate)
	case msg.DaysLeft == 0:
		return fmt.Sprintf("%s (%s) is due today", msg.BillName, amount)
	default:
		return fmt.Sprintf("%s (%s) is due in %d day(s) on %s", msg.BillName, amount, msg.DaysLeft, msg.DueDate)
	}
}

// NotifyWorker handles reminder messages consumed from the queue. Redelivered
// messages are recognised by ID and delivered once.
type NotifyWorker struct {
	bills     BillLookup
	sink      Sink
	seen      *cache.LRUCache[struct{}]
	delivered atomic.Int64
}

// NewNotifyWorker creates a worker remembering up to seenSize message IDs
// for seenTTL. bills may be nil to skip the existence check.
func NewNotifyWorker(bills BillLookup, sink Sink, seenSize int, seenTTL time.Duration) *NotifyWorker {
	return &NotifyWorker{
		bills: bills,
		sink:  sink,
		seen:  cache.NewLRUCache[struct{}](seenSize, seenTTL),
	}
}

// Seen exposes the dedup cache for periodic cleanup.
func (w *NotifyWorker) Seen() cache.Cleaner {
	return w.seen
}

// Delivered returns the number of reminders delivered so far.
func (w *NotifyWorker) Delivered() int64 {
	return w.delivered.Load()
}

// HandleReminder processes a single reminder message. A returned error
// requeues the message.
func (w *NotifyWorker) HandleReminder(ctx context.Context, msg *amqp.ReminderMessage) error {
	if strings.TrimSpace(msg.ID) == "" || strings.TrimSpace(msg.BillName) == "" {
		slog.WarnContext(ctx, "Dropping malformed reminder", "id", msg.ID, applog.FieldBillID, msg.BillID)
		return nil
	}
	if _, dup := w.seen.Get(msg.ID); dup {
		slog.DebugContext(ctx, "Skipping duplicate reminder", "id", msg.ID)
		return nil
	}

	if w.bills != nil && msg.BillID != 0 {
		if _, err := w.bills.GetBill(ctx, msg.BillID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				slog.InfoContext(ctx, "Dropping reminder for deleted bill", "id", msg.ID, applog.FieldBillID, msg.BillID)
				w.seen.Set(msg.ID, struct{}{})
				return nil
			}
			return fmt.Errorf("look up bill %d: %w", msg.BillID, err)
		}
	}

	if err := w.sink.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver reminder %s: %w", msg.ID, err)
	}
	w.seen.Set(msg.ID, struct{}{})
	w.delivered.Add(1)
	return nil
}
