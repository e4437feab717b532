package services

import (
	"fmt"

	"finadvisor/internal/core"
)

// DefaultLowBalanceThreshold returns the projected balance below which a
// warning is raised.
func DefaultLowBalanceThreshold() core.Money {
	return core.Money{Cents: 5000}
}

// Projection is the balance left after all pending expenses and bills.
type Projection struct {
	Balance       core.Money
	TotalExpenses core.Money
	TotalBills    core.Money
	Projected     core.Money
	Threshold     core.Money
	Warning       bool
}

// Project nets balance against expenses and bills. A single negative amount
// invalidates the aggregate, so the whole projection fails with
// core.ErrInvalidAmount instead of producing a distorted figure.
func Project(balance core.Money, expenses []core.Expense, bills []core.Bill, lowThreshold core.Money) (Projection, error) {
	if err := balance.Validate(); err != nil {
		return Projection{}, fmt.Errorf("project balance: starting balance: %w", err)
	}

	var totalExpenses core.Money
	for i, e := range expenses {
		if err := e.Amount.Validate(); err != nil {
			return Projection{}, fmt.Errorf("project balance: expense %d (%s): %w", i, e.Description, err)
		}
		sum, err := totalExpenses.Add(e.Amount)
		if err != nil {
			return Projection{}, fmt.Errorf("project balance: %w", err)
		}
		totalExpenses = sum
	}

	var totalBills core.Money
	for i, b := range bills {
		if err := b.Amount.Validate(); err != nil {
			return Projection{}, fmt.Errorf("project balance: bill %d (%s): %w", i, b.Name, err)
		}
		sum, err := totalBills.Add(b.Amount)
		if err != nil {
			return Projection{}, fmt.Errorf("project balance: %w", err)
		}
		totalBills = sum
	}

	projected, err := balance.Sub(totalExpenses)
	if err == nil {
		projected, err = projected.Sub(totalBills)
	}
	if err != nil {
		return Projection{}, fmt.Errorf("project balance: %w", err)
	}

	return Projection{
		Balance:       balance,
		TotalExpenses: totalExpenses,
		TotalBills:    totalBills,
		Projected:     projected,
		Threshold:     lowThreshold,
		Warning:       projected.Cents < lowThreshold.Cents,
	}, nil
}
