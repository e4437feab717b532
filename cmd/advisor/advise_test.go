package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"finadvisor/internal/core"
)

func writeBatch(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadBatchFile(t *testing.T) {
	path := writeBatch(t, `{
		"today": "2024-03-10",
		"balance": "200.00",
		"bills": [{"id": 4, "name": "Electricity", "due_date": "2024-03-13", "amount": "100", "every": "monthly"}],
		"expenses": [{"description": "Grocery shopping", "amount": "80,50", "date": "2024-03-09"}]
	}`)

	in, err := readBatchFile(path, core.NewDate(2000, 1, 1))
	if err != nil {
		t.Fatalf("readBatchFile() error = %v", err)
	}
	if in.Today.String() != "2024-03-10" || in.Balance.Cents != 20000 {
		t.Errorf("header = %s %s", in.Today, in.Balance)
	}
	if len(in.Bills) != 1 || in.Bills[0].Amount.Cents != 10000 || in.Bills[0].ID != 4 || in.Bills[0].Every != core.Monthly {
		t.Errorf("bills = %+v", in.Bills)
	}
	if len(in.Expenses) != 1 || in.Expenses[0].Amount.Cents != 8050 || in.Expenses[0].Date.String() != "2024-03-09" {
		t.Errorf("expenses = %+v", in.Expenses)
	}
}

func TestReadBatchFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"bad json", `{"balance": `, core.ErrInvalidInput},
		{"negative expense", `{"balance": "10", "expenses": [{"description": "x", "amount": "-1"}]}`, core.ErrInvalidAmount},
		{"bad due date", `{"balance": "10", "bills": [{"name": "x", "due_date": "soon", "amount": "1"}]}`, core.ErrInvalidInput},
		{"missing balance", `{}`, core.ErrInvalidAmount},
		{"unknown field", `{"balance": "10", "currency": "EUR"}`, core.ErrInvalidInput},
		{"trailing data", `{"balance": "10"} {}`, core.ErrInvalidInput},
		{"empty bill name", `{"balance": "10", "bills": [{"name": "", "due_date": "2024-03-13", "amount": "1"}]}`, core.ErrEmptyName},
		{"unknown repetition", `{"balance": "10", "bills": [{"name": "Rent", "due_date": "2024-03-13", "amount": "1", "every": "fortnightly"}]}`, core.ErrInvalidRepetition},
		{"empty description", `{"balance": "10", "expenses": [{"description": " ", "amount": "1"}]}`, core.ErrEmptyDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readBatchFile(writeBatch(t, tt.body), core.NewDate(2024, 1, 1))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, core.ErrInvalidInput) && !errors.Is(err, core.ErrInvalidAmount) {
				t.Errorf("error = %v does not map to a 4xx code", err)
			}
		})
	}
}
