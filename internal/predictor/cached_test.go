package predictor

import (
	"context"
	"errors"
	"testing"
	"time"

	"finadvisor/internal/core"
	"finadvisor/internal/features"
)

func TestCached(t *testing.T) {
	var billCalls, catCalls int
	next := Funcs{
		BillDue: func(features.Vector) (float64, error) {
			billCalls++
			return 0.8, nil
		},
		ExpenseCategory: func(features.Vector) ([]float64, error) {
			catCalls++
			return []float64{0.5, 0.5}, nil
		},
	}
	c := NewCached(next, 16, time.Minute)
	ctx := context.Background()
	v := testVector(t, features.DefaultSchema())

	for range 3 {
		if p, err := c.ScoreBillDue(ctx, v); err != nil || p != 0.8 {
			t.Fatalf("ScoreBillDue() = %v, %v", p, err)
		}
	}
	if billCalls != 1 {
		t.Errorf("bill model called %d times, want 1", billCalls)
	}

	dist, _ := c.ScoreExpenseCategory(ctx, v)
	dist[0] = 99
	again, _ := c.ScoreExpenseCategory(ctx, v)
	if again[0] != 0.5 || catCalls != 1 {
		t.Errorf("cached distribution = %v after %d calls", again, catCalls)
	}

	// A different schema version is a different key.
	other := v
	other.SchemaVersion = "v2"
	if _, err := c.ScoreBillDue(ctx, other); err != nil {
		t.Fatal(err)
	}
	if billCalls != 2 {
		t.Errorf("bill model called %d times, want 2", billCalls)
	}

	stats := c.Stats()
	if stats.Hits != 3 || stats.Size != 3 {
		t.Errorf("Stats() = %+v", stats)
	}
	if len(c.Caches()) != 2 {
		t.Error("Caches() should expose both caches")
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	calls := 0
	c := NewCached(Funcs{LowBalance: func(features.Vector) (float64, error) {
		calls++
		return 0, errors.New("timeout")
	}}, 16, time.Minute)
	v := testVector(t, features.DefaultSchema())
	for range 2 {
		if _, err := c.ScoreLowBalance(context.Background(), v); err == nil {
			t.Fatal("expected error")
		}
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestFuncs_Missing(t *testing.T) {
	var f Funcs
	v := testVector(t, features.DefaultSchema())
	if _, err := f.ScoreBillDue(context.Background(), v); !errors.Is(err, core.ErrPredictorUnavailable) {
		t.Errorf("ScoreBillDue() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.ScoreLowBalance(ctx, v); !errors.Is(err, context.Canceled) {
		t.Errorf("ScoreLowBalance() error = %v", err)
	}
}
