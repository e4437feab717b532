// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents so sums and differences are exact.
// Decimal text and JSON numbers are converted through shopspring/decimal
// with half-up rounding on the third decimal place.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is allowed; negative values
// and malformed input return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return 0, err
	}
	return m.Cents, nil
}

// ParseMoney is ParseDecimalToCents returning a Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// MoneyFromDecimal rounds d half-up to cents. Negative values and values
// that do not fit in int64 cents return ErrInvalidAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d)
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) {
		return Money{}, fmt.Errorf("%w: %s is too large", ErrInvalidAmount, d)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// MoneyFromFloat converts a float input (form fields, JSON numbers) to Money.
// NaN, infinities and negative values return ErrInvalidAmount.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, fmt.Errorf("%w: non-finite value", ErrInvalidAmount)
	}
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the amount as a decimal with two places.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "-130.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Euros returns the value as a float64 for display and feature encoding.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Add returns m+o, failing with ErrInvalidAmount on int64 overflow.
func (m Money) Add(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) ||
		(o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, fmt.Errorf("%w: sum overflows", ErrInvalidAmount)
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

// Sub returns m-o, failing with ErrInvalidAmount on int64 overflow.
func (m Money) Sub(o Money) (Money, error) {
	if o.Cents == math.MinInt64 {
		return Money{}, fmt.Errorf("%w: difference overflows", ErrInvalidAmount)
	}
	return m.Add(Money{Cents: -o.Cents})
}
