package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

// CategoryOther is the fallback label for expenses no rule recognises.
const CategoryOther Category = "Other"

type (
	RepetitionTypes string

	// Category is an expense category label.
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction holds the raw attributes of a single transaction as
	// supplied to a prediction request. It is passed by value and never
	// modified after NewTransaction returns it.
	Transaction struct {
		Amount     Money
		DayOfMonth int // 1-31
		DayOfWeek  int // 0-6
		Hour       int // 0-23
		Balance    Money
		Merchant   string
	}

	Expense struct {
		ID          int64 // Database ID, zero when not persisted
		Date        Date
		Description string
		Amount      Money
		Category    Category // Optional, derived by the classifier
	}

	// Bill is a payable with a due date. Every is empty for one-off bills.
	Bill struct {
		ID       int64
		Name     string
		DueDate  Date
		Amount   Money
		Every    RepetitionTypes
		LastPaid Date
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyMerchant      = errors.New("empty merchant")
	ErrInvalidRepetition  = errors.New("invalid repetition type")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DaysUntil returns the number of whole calendar days from d to other.
// The result is negative when other is before d.
func (d Date) DaysUntil(other Date) int {
	from := NewDate(d.Year(), d.Month(), d.Day())
	to := NewDate(other.Year(), other.Month(), other.Day())
	// Both are UTC midnights, so the difference is an exact multiple of a day.
	// Unix seconds avoid the ~292 year saturation of time.Duration.
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

// AddDays returns the date n calendar days after d.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year(), d.Month(), d.Day()+n)
}

const secondsPerDay = 24 * 60 * 60

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsEmpty returns true if the date is zero (for optional dates such as LastPaid)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, m)
	}
	return nil
}

// IsValid reports whether r is a known repetition type.
func (r RepetitionTypes) IsValid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// IsRecurring reports whether the bill repeats.
func (b Bill) IsRecurring() bool {
	return b.Every != ""
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.DueDate.Validate(); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Every != "" && !b.Every.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidRepetition, b.Every)
	}
	return nil
}

// MaxDescriptionLength is the longest accepted expense description in bytes.
const MaxDescriptionLength = 200

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return e.Amount.Validate()
}

// NewTransaction validates the raw attributes and returns the transaction.
func NewTransaction(amount Money, dayOfMonth, dayOfWeek, hour int, balance Money, merchant string) (Transaction, error) {
	tx := Transaction{
		Amount:     amount,
		DayOfMonth: dayOfMonth,
		DayOfWeek:  dayOfWeek,
		Hour:       hour,
		Balance:    balance,
		Merchant:   strings.TrimSpace(merchant),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if err := t.Balance.Validate(); err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if t.DayOfMonth < 1 || t.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month %d must be between 1 and 31", ErrInvalidInput, t.DayOfMonth)
	}
	if t.DayOfWeek < 0 || t.DayOfWeek > 6 {
		return fmt.Errorf("%w: day of week %d must be between 0 and 6", ErrInvalidInput, t.DayOfWeek)
	}
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("%w: hour %d must be between 0 and 23", ErrInvalidInput, t.Hour)
	}
	if t.Merchant == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyMerchant)
	}
	return nil
}
