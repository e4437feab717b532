package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReminderMessage announces that a bill is inside the reminder window.
// Consumers must not confuse Status "overdue" with "due_today".
type ReminderMessage struct {
	ID          string    `json:"id"`
	BillID      int64     `json:"bill_id"`
	BillName    string    `json:"bill_name"`
	DueDate     string    `json:"due_date"`
	AmountCents int64     `json:"amount_cents"`
	DaysLeft    int       `json:"days_left"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewReminderMessage creates a reminder message with a fresh ID.
func NewReminderMessage(billID int64, billName, dueDate string, amountCents int64, daysLeft int, status string) *ReminderMessage {
	return &ReminderMessage{
		ID:          uuid.NewString(),
		BillID:      billID,
		BillName:    billName,
		DueDate:     dueDate,
		AmountCents: amountCents,
		DaysLeft:    daysLeft,
		Status:      status,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON creates a message from JSON bytes
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
