package services

import (
	"context"
	"fmt"
	"log/slog"

	"finadvisor/internal/core"
)

// AdvisorStore is the persistence behind stored-data advisories.
type AdvisorStore interface {
	ListActiveBills(ctx context.Context) ([]core.Bill, error)
	ListExpenses(ctx context.Context, since core.Date) ([]core.Expense, error)
	LatestBalance(ctx context.Context) (core.Money, error)
}

// AdvisorService runs the batch advisor over stored bills, expenses and the
// latest balance snapshot.
type AdvisorService struct {
	store   AdvisorStore
	advisor *BatchAdvisor
}

// NewAdvisorService creates a new advisor service
func NewAdvisorService(store AdvisorStore, advisor *BatchAdvisor) *AdvisorService {
	return &AdvisorService{
		store:   store,
		advisor: advisor,
	}
}

// Advisor returns the underlying batch advisor.
func (s *AdvisorService) Advisor() *BatchAdvisor {
	return s.advisor
}

// Advise loads everything the batch advisor needs and runs it for today.
// Expenses dated before since are ignored; a zero since includes all.
func (s *AdvisorService) Advise(ctx context.Context, today, since core.Date) (BatchReport, error) {
	if s.store == nil || s.advisor == nil {
		return BatchReport{}, fmt.Errorf("advisor service not properly initialized")
	}

	bills, err := s.store.ListActiveBills(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("load bills: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, since)
	if err != nil {
		return BatchReport{}, fmt.Errorf("load expenses: %w", err)
	}
	balance, err := s.store.LatestBalance(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("load balance: %w", err)
	}

	slog.DebugContext(ctx, "Loaded advisory data",
		"bills", len(bills),
		"expenses", len(expenses),
		"balance_cents", balance.Cents,
		"since", since.String())

	return s.advisor.Advise(ctx, BatchInput{
		Today:    today,
		Balance:  balance,
		Bills:    bills,
		Expenses: expenses,
	})
}
