package http

import (
	"fmt"

	"github.com/shopspring/decimal"

	"finadvisor/internal/core"
	"finadvisor/internal/services"
)

// Amounts travel as decimals: JSON numbers and quoted strings are both
// accepted and responses always carry two-decimal strings.

type forecastRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	DayOfMonth int             `json:"day_of_month"`
	DayOfWeek  int             `json:"day_of_week"`
	Hour       int             `json:"hour"`
	Balance    decimal.Decimal `json:"balance"`
	Merchant   string          `json:"merchant"`

	// Description is optional free text, matched against the keyword table.
	Description string `json:"description,omitempty"`
}

func (r forecastRequest) transaction() (core.Transaction, error) {
	if len(r.Description) > core.MaxDescriptionLength {
		return core.Transaction{}, fmt.Errorf("%w: description: %w", core.ErrInvalidInput, core.ErrDescriptionTooLong)
	}
	amount, err := core.MoneyFromDecimal(r.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	balance, err := core.MoneyFromDecimal(r.Balance)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("balance: %w", err)
	}
	return core.NewTransaction(amount, r.DayOfMonth, r.DayOfWeek, r.Hour, balance, r.Merchant)
}

type scoresResponse struct {
	BillDue         float64   `json:"bill_due"`
	ExpenseCategory []float64 `json:"expense_category"`
	LowBalance      float64   `json:"low_balance"`
}

type forecastResponse struct {
	BillDueSoon       bool           `json:"bill_due_soon"`
	ExpenseCategory   string         `json:"expense_category"`
	LowBalanceWarning bool           `json:"low_balance_warning"`
	SchemaVersion     string         `json:"schema_version"`
	Scores            scoresResponse `json:"scores"`

	// Keyword classifier result, present only when a description was sent.
	KeywordCategory string `json:"keyword_category,omitempty"`
	Keyword         string `json:"keyword,omitempty"`
}

func newForecastResponse(r services.AdvisoryResult) forecastResponse {
	return forecastResponse{
		BillDueSoon:       r.BillDueSoon,
		ExpenseCategory:   r.ExpenseCategory,
		LowBalanceWarning: r.LowBalanceWarning,
		SchemaVersion:     r.SchemaVersion,
		Scores: scoresResponse{
			BillDue:         r.Scores.BillDue,
			ExpenseCategory: r.Scores.Category,
			LowBalance:      r.Scores.LowBalance,
		},
	}
}

type billPayload struct {
	ID      int64           `json:"id,omitempty"`
	Name    string          `json:"name"`
	DueDate string          `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	Every   string          `json:"every,omitempty"`
}

type expensePayload struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date,omitempty"`
}

type advisoryRequest struct {
	Today    string           `json:"today"`
	Balance  decimal.Decimal  `json:"balance"`
	Bills    []billPayload    `json:"bills"`
	Expenses []expensePayload `json:"expenses"`
}

// batchInput converts the payload; today defaults to fallback.
func (r advisoryRequest) batchInput(fallback core.Date) (services.BatchInput, error) {
	in := services.BatchInput{Today: fallback}
	if r.Today != "" {
		d, err := core.ParseDate(r.Today)
		if err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: today: %v", core.ErrInvalidInput, err)
		}
		in.Today = d
	}

	balance, err := core.MoneyFromDecimal(r.Balance)
	if err != nil {
		return services.BatchInput{}, fmt.Errorf("balance: %w", err)
	}
	in.Balance = balance

	for i, b := range r.Bills {
		due, err := core.ParseDate(b.DueDate)
		if err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: bill %d: %v", core.ErrInvalidInput, i, err)
		}
		amount, err := core.MoneyFromDecimal(b.Amount)
		if err != nil {
			return services.BatchInput{}, fmt.Errorf("bill %d (%s): %w", i, b.Name, err)
		}
		bill := core.Bill{
			ID:      b.ID,
			Name:    b.Name,
			DueDate: due,
			Amount:  amount,
			Every:   core.RepetitionTypes(b.Every),
		}
		if err := bill.Validate(); err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: bill %d: %w", core.ErrInvalidInput, i, err)
		}
		in.Bills = append(in.Bills, bill)
	}

	for i, e := range r.Expenses {
		amount, err := core.MoneyFromDecimal(e.Amount)
		if err != nil {
			return services.BatchInput{}, fmt.Errorf("expense %d (%s): %w", i, e.Description, err)
		}
		exp := core.Expense{Description: e.Description, Amount: amount}
		if e.Date != "" {
			if exp.Date, err = core.ParseDate(e.Date); err != nil {
				return services.BatchInput{}, fmt.Errorf("%w: expense %d: %v", core.ErrInvalidInput, i, err)
			}
		}
		if err := exp.Validate(); err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: expense %d: %w", core.ErrInvalidInput, i, err)
		}
		in.Expenses = append(in.Expenses, exp)
	}
	return in, nil
}

type reminderResponse struct {
	BillID   int64  `json:"bill_id,omitempty"`
	Name     string `json:"name"`
	DueDate  string `json:"due_date"`
	Amount   string `json:"amount"`
	DaysLeft int    `json:"days_left"`
	Status   string `json:"status"`
}

type classifiedExpense struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"`
	Category    string `json:"category"`
}

type categoryTotal struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type projectionResponse struct {
	Balance       string `json:"balance"`
	TotalExpenses string `json:"total_expenses"`
	TotalBills    string `json:"total_bills"`
	Projected     string `json:"projected"`
	Threshold     string `json:"threshold"`
	Warning       bool   `json:"low_balance_warning"`
}

type advisoryResponse struct {
	Today      string              `json:"today"`
	Reminders  []reminderResponse  `json:"reminders"`
	Expenses   []classifiedExpense `json:"expenses"`
	ByCategory []categoryTotal     `json:"by_category"`
	Projection projectionResponse  `json:"projection"`
}

func newReminderResponses(rs []services.Reminder) []reminderResponse {
	out := make([]reminderResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, reminderResponse{
			BillID:   r.Bill.ID,
			Name:     r.Bill.Name,
			DueDate:  r.Bill.DueDate.String(),
			Amount:   r.Bill.Amount.String(),
			DaysLeft: r.DaysLeft,
			Status:   string(r.Status),
		})
	}
	return out
}

func newProjectionResponse(p services.Projection) projectionResponse {
	return projectionResponse{
		Balance:       p.Balance.String(),
		TotalExpenses: p.TotalExpenses.String(),
		TotalBills:    p.TotalBills.String(),
		Projected:     p.Projected.String(),
		Threshold:     p.Threshold.String(),
		Warning:       p.Warning,
	}
}

func newAdvisoryResponse(today core.Date, rep services.BatchReport) advisoryResponse {
	resp := advisoryResponse{
		Today:      today.String(),
		Reminders:  newReminderResponses(rep.Reminders),
		Expenses:   make([]classifiedExpense, 0, len(rep.Expenses)),
		ByCategory: make([]categoryTotal, 0, len(rep.ByCategory)),
		Projection: newProjectionResponse(rep.Projection),
	}
	for _, e := range rep.Expenses {
		ce := classifiedExpense{
			Description: e.Description,
			Amount:      e.Amount.String(),
			Category:    string(e.Category),
		}
		if !e.Date.IsEmpty() {
			ce.Date = e.Date.String()
		}
		resp.Expenses = append(resp.Expenses, ce)
	}
	for _, c := range rep.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryTotal{Category: string(c.Name), Amount: c.Amount.String()})
	}
	return resp
}
