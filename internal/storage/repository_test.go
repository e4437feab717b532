package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finadvisor/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "advisor.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	// Second run is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations() second run error = %v", err)
	}
	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("SchemaVersion() = %d, dirty %v", version, dirty)
	}
}

func TestBills(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	oneOff, err := repo.CreateBill(ctx, core.Bill{
		Name:    " Electricity ",
		DueDate: core.NewDate(2025, 6, 15),
		Amount:  core.Money{Cents: 10000},
	})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}
	if oneOff.ID == 0 || oneOff.Name != "Electricity" {
		t.Errorf("CreateBill() = %+v", oneOff)
	}

	rent, err := repo.CreateBill(ctx, core.Bill{
		Name:    "Rent",
		DueDate: core.NewDate(2025, 1, 31),
		Amount:  core.Money{Cents: 90000},
		Every:   core.Monthly,
	})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}

	got, err := repo.GetBill(ctx, rent.ID)
	if err != nil {
		t.Fatalf("GetBill() error = %v", err)
	}
	if got.Every != core.Monthly || got.DueDate.String() != "2025-01-31" || !got.LastPaid.IsEmpty() {
		t.Errorf("GetBill() = %+v", got)
	}

	// Paying a month-end bill clamps to February.
	paid, err := repo.PayBill(ctx, rent.ID)
	if err != nil {
		t.Fatalf("PayBill() error = %v", err)
	}
	if paid.LastPaid.String() != "2025-01-31" || paid.DueDate.String() != "2025-02-28" {
		t.Errorf("PayBill() recurring = last paid %s, next %s", paid.LastPaid, paid.DueDate)
	}

	if _, err := repo.PayBill(ctx, oneOff.ID); err != nil {
		t.Fatalf("PayBill() one-off error = %v", err)
	}

	active, err := repo.ListActiveBills(ctx)
	if err != nil {
		t.Fatalf("ListActiveBills() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != rent.ID || active[0].DueDate.String() != "2025-02-28" {
		t.Errorf("ListActiveBills() = %+v", active)
	}

	all, err := repo.ListBills(ctx)
	if err != nil {
		t.Fatalf("ListBills() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListBills() returned %d bills, want 2", len(all))
	}

	if err := repo.DeleteBill(ctx, rent.ID); err != nil {
		t.Fatalf("DeleteBill() error = %v", err)
	}
	if _, err := repo.GetBill(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBill() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteBill(ctx, rent.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteBill() twice error = %v, want ErrNotFound", err)
	}
}

func TestCreateBill_Invalid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tests := []struct {
		name string
		bill core.Bill
		want error
	}{
		{"empty name", core.Bill{DueDate: core.NewDate(2025, 1, 1)}, core.ErrEmptyName},
		{"negative amount", core.Bill{Name: "x", DueDate: core.NewDate(2025, 1, 1), Amount: core.Money{Cents: -1}}, core.ErrInvalidAmount},
		{"bad repetition", core.Bill{Name: "x", DueDate: core.NewDate(2025, 1, 1), Every: "hourly"}, core.ErrInvalidRepetition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.CreateBill(ctx, tt.bill); !errors.Is(err, tt.want) {
				t.Errorf("CreateBill() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpenses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, e := range []core.Expense{
		{Date: core.NewDate(2025, 6, 2), Description: "Bus fare", Amount: core.Money{Cents: 250}},
		{Date: core.NewDate(2025, 5, 20), Description: "Grocery shopping", Amount: core.Money{Cents: 8000}, Category: "Food"},
		{Date: core.NewDate(2025, 6, 1), Description: "Cinema", Amount: core.Money{Cents: 1200}},
	} {
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense() error = %v", err)
		}
	}

	all, err := repo.ListExpenses(ctx, core.Date{})
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if len(all) != 3 || all[0].Description != "Grocery shopping" || all[0].Category != "Food" {
		t.Errorf("ListExpenses() = %+v", all)
	}

	june, err := repo.ListExpenses(ctx, core.NewDate(2025, 6, 1))
	if err != nil {
		t.Fatalf("ListExpenses() error = %v", err)
	}
	if len(june) != 2 || june[0].Description != "Cinema" || june[1].Description != "Bus fare" {
		t.Errorf("ListExpenses(since June) = %+v", june)
	}

	if _, err := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 1, 1), Description: "x", Amount: core.Money{Cents: -5}}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("CreateExpense(negative) error = %v", err)
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{Description: "x"}); err == nil {
		t.Error("CreateExpense() without a date should fail")
	}
}

func TestBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	got, err := repo.LatestBalance(ctx)
	if err != nil || got.Cents != 0 {
		t.Fatalf("LatestBalance() empty = %v, %v", got, err)
	}

	for _, c := range []int64{1000, 25000} {
		if err := repo.RecordBalance(ctx, core.Money{Cents: c}); err != nil {
			t.Fatalf("RecordBalance() error = %v", err)
		}
	}
	got, err = repo.LatestBalance(ctx)
	if err != nil || got.Cents != 25000 {
		t.Errorf("LatestBalance() = %v, %v, want 25000", got, err)
	}

	if err := repo.RecordBalance(ctx, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("RecordBalance(negative) error = %v", err)
	}
}

func TestReminderLog(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.CreateBill(ctx, core.Bill{Name: "Water", DueDate: core.NewDate(2025, 6, 15), Amount: core.Money{Cents: 100}})
	if err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}
	day := core.NewDate(2025, 6, 12)

	sent, err := repo.ReminderSent(ctx, b.ID, day)
	if err != nil || sent {
		t.Fatalf("ReminderSent() before = %v, %v", sent, err)
	}
	for range 2 {
		if err := repo.RecordReminder(ctx, b.ID, day, "upcoming"); err != nil {
			t.Fatalf("RecordReminder() error = %v", err)
		}
	}
	sent, err = repo.ReminderSent(ctx, b.ID, day)
	if err != nil || !sent {
		t.Errorf("ReminderSent() after = %v, %v", sent, err)
	}
	sent, _ = repo.ReminderSent(ctx, b.ID, day.AddDays(1))
	if sent {
		t.Error("ReminderSent() for the next day should be false")
	}

	if err := repo.DeleteBill(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBill() error = %v", err)
	}
}
