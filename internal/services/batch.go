package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"finadvisor/internal/classify"
	"finadvisor/internal/core"
)

// BatchInput is the model-free advisory request: ordered bills and expenses
// plus the starting balance.
type BatchInput struct {
	Today    core.Date
	Balance  core.Money
	Bills    []core.Bill
	Expenses []core.Expense
}

// BatchReport is the model-free advisory answer.
type BatchReport struct {
	Reminders  []Reminder
	Expenses   []core.Expense // input order, Category filled in
	ByCategory []core.CategoryAmount
	Projection Projection
}

// BatchAdvisor runs the reminder scheduler, the keyword classifier and the
// balance projection over one batch.
type BatchAdvisor struct {
	classifier *classify.Classifier
	window     int
	threshold  core.Money
}

// NewBatchAdvisor creates an advisor with the given reminder window (days)
// and low-balance threshold.
func NewBatchAdvisor(classifier *classify.Classifier, windowDays int, threshold core.Money) *BatchAdvisor {
	return &BatchAdvisor{
		classifier: classifier,
		window:     windowDays,
		threshold:  threshold,
	}
}

// Window returns the reminder window in days.
func (a *BatchAdvisor) Window() int {
	return a.window
}

// Threshold returns the low-balance threshold.
func (a *BatchAdvisor) Threshold() core.Money {
	return a.threshold
}

// Explain runs description through the keyword classifier.
func (a *BatchAdvisor) Explain(description string) classify.Match {
	return a.classifier.Explain(description)
}

// Advise builds the full report. Classification never fails; an invalid
// amount anywhere fails the whole batch because the projection would be
// meaningless.
func (a *BatchAdvisor) Advise(ctx context.Context, in BatchInput) (BatchReport, error) {
	if in.Today.IsZero() {
		return BatchReport{}, fmt.Errorf("advise: %w: today is required", core.ErrInvalidInput)
	}

	projection, err := Project(in.Balance, in.Expenses, in.Bills, a.threshold)
	if err != nil {
		return BatchReport{}, fmt.Errorf("advise: %w", err)
	}

	classified := a.classifier.ClassifyAll(in.Expenses)
	byCategory, err := core.SummarizeByCategory(classified)
	if err != nil {
		return BatchReport{}, fmt.Errorf("advise: %w", err)
	}

	reminders := slices.Collect(DueSoon(in.Bills, in.Today, a.window))

	slog.DebugContext(ctx, "Batch advisory computed",
		"bills", len(in.Bills),
		"expenses", len(in.Expenses),
		"reminders", len(reminders),
		"projected_cents", projection.Projected.Cents,
		"warning", projection.Warning)

	return BatchReport{
		Reminders:  reminders,
		Expenses:   classified,
		ByCategory: byCategory,
		Projection: projection,
	}, nil
}
