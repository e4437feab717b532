package predictor

import (
	"context"
	"fmt"

	"finadvisor/internal/core"
	"finadvisor/internal/features"
)

// Funcs adapts plain functions to services.Predictor. A nil function makes
// the corresponding capability report core.ErrPredictorUnavailable.
type Funcs struct {
	BillDue         func(features.Vector) (float64, error)
	ExpenseCategory func(features.Vector) ([]float64, error)
	LowBalance      func(features.Vector) (float64, error)
}

func (f Funcs) ScoreBillDue(ctx context.Context, v features.Vector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.BillDue == nil {
		return 0, fmt.Errorf("bill_due: %w: no model configured", core.ErrPredictorUnavailable)
	}
	return f.BillDue(v)
}

func (f Funcs) ScoreExpenseCategory(ctx context.Context, v features.Vector) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ExpenseCategory == nil {
		return nil, fmt.Errorf("expense_category: %w: no model configured", core.ErrPredictorUnavailable)
	}
	return f.ExpenseCategory(v)
}

func (f Funcs) ScoreLowBalance(ctx context.Context, v features.Vector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.LowBalance == nil {
		return 0, fmt.Errorf("low_balance: %w: no model configured", core.ErrPredictorUnavailable)
	}
	return f.LowBalance(v)
}
