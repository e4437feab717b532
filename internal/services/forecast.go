package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"finadvisor/internal/core"
	"finadvisor/internal/features"
)

// Predictor is the capability set of the external models. Every method
// receives the same feature vector and must treat it as read-only.
type Predictor interface {
	// ScoreBillDue returns the probability that a bill is due soon.
	ScoreBillDue(ctx context.Context, v features.Vector) (float64, error)
	// ScoreExpenseCategory returns a probability per category label.
	ScoreExpenseCategory(ctx context.Context, v features.Vector) ([]float64, error)
	// ScoreLowBalance returns the probability of a low balance.
	ScoreLowBalance(ctx context.Context, v features.Vector) (float64, error)
}

// Thresholds turn probabilities into advisory booleans. A score at or above
// the threshold raises the flag.
type Thresholds struct {
	BillDue    float64
	LowBalance float64
}

// DefaultThresholds returns 0.5 for both flags.
func DefaultThresholds() Thresholds {
	return Thresholds{BillDue: 0.5, LowBalance: 0.5}
}

var defaultCategories = []string{"groceries", "rent", "utilities", "entertainment", "salary", "subscription"}

// DefaultCategories returns the label set of the bundled expense-category
// model, in output order.
func DefaultCategories() []string {
	return append([]string(nil), defaultCategories...)
}

// ForecastConfig is loaded once at startup and never mutated afterwards.
type ForecastConfig struct {
	Schema     features.Schema
	Scaler     *features.Scaler // nil sends unscaled vectors
	Categories []string
	Thresholds Thresholds
}

// Validate checks the schema, scaler, label set and thresholds agree.
func (c ForecastConfig) Validate() error {
	var problems []string
	if err := c.Schema.Validate(); err != nil {
		problems = append(problems, err.Error())
	} else if c.Scaler != nil {
		if err := c.Scaler.Validate(c.Schema); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(c.Categories) == 0 {
		problems = append(problems, "at least one expense category is required")
	}
	for _, th := range []struct {
		name string
		v    float64
	}{{"bill due", c.Thresholds.BillDue}, {"low balance", c.Thresholds.LowBalance}} {
		if math.IsNaN(th.v) || th.v < 0 || th.v > 1 {
			problems = append(problems, fmt.Sprintf("%s threshold %v must be between 0 and 1", th.name, th.v))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid forecast config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Scores are the raw predictor outputs behind an AdvisoryResult.
type Scores struct {
	BillDue    float64
	Category   []float64
	LowBalance float64
}

// AdvisoryResult is the complete answer to one forecast request.
type AdvisoryResult struct {
	BillDueSoon       bool
	ExpenseCategory   string
	LowBalanceWarning bool
	SchemaVersion     string
	Scores            Scores
}

// Forecaster composes the feature encoder with the external predictors.
type Forecaster struct {
	cfg       ForecastConfig
	predictor Predictor
}

// NewForecaster validates cfg and binds it to predictor.
func NewForecaster(cfg ForecastConfig, predictor Predictor) (*Forecaster, error) {
	if predictor == nil {
		return nil, errors.New("forecaster: predictor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Categories = slices.Clone(cfg.Categories)
	return &Forecaster{cfg: cfg, predictor: predictor}, nil
}

// Config returns the forecaster's configuration.
func (f *Forecaster) Config() ForecastConfig {
	return f.cfg
}

// Forecast encodes tx once, scores it with all three predictors and
// interprets the scores. Any failure fails the whole request; a partially
// filled result is never returned.
func (f *Forecaster) Forecast(ctx context.Context, tx core.Transaction) (AdvisoryResult, error) {
	v, err := f.Features(tx)
	if err != nil {
		return AdvisoryResult{}, err
	}

	var scores Scores
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := f.predictor.ScoreBillDue(gctx, cloneVector(v))
		if err != nil {
			return predictorError("bill_due", err)
		}
		scores.BillDue, err = checkProbability("bill_due", p)
		return err
	})
	g.Go(func() error {
		dist, err := f.predictor.ScoreExpenseCategory(gctx, cloneVector(v))
		if err != nil {
			return predictorError("expense_category", err)
		}
		if err := f.checkDistribution(dist); err != nil {
			return err
		}
		scores.Category = dist
		return nil
	})
	g.Go(func() error {
		p, err := f.predictor.ScoreLowBalance(gctx, cloneVector(v))
		if err != nil {
			return predictorError("low_balance", err)
		}
		scores.LowBalance, err = checkProbability("low_balance", p)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "Forecast failed",
			"schema_version", v.SchemaVersion,
			"error", err)
		return AdvisoryResult{}, fmt.Errorf("forecast: %w", err)
	}

	return AdvisoryResult{
		BillDueSoon:       scores.BillDue >= f.cfg.Thresholds.BillDue,
		ExpenseCategory:   f.cfg.Categories[argmax(scores.Category)],
		LowBalanceWarning: scores.LowBalance >= f.cfg.Thresholds.LowBalance,
		SchemaVersion:     v.SchemaVersion,
		Scores:            scores,
	}, nil
}

// Features returns the vector the predictors receive for tx: encoded with
// the configured schema and, when a scaler is configured, standardized.
func (f *Forecaster) Features(tx core.Transaction) (features.Vector, error) {
	v, err := features.Encode(tx, f.cfg.Schema)
	if err != nil {
		return features.Vector{}, fmt.Errorf("forecast: %w", err)
	}
	if f.cfg.Scaler != nil {
		v, err = f.cfg.Scaler.Transform(v)
		if err != nil {
			return features.Vector{}, fmt.Errorf("forecast: scale features: %w", err)
		}
	}
	return v, nil
}

func (f *Forecaster) checkDistribution(dist []float64) error {
	if len(dist) != len(f.cfg.Categories) {
		return fmt.Errorf("expense_category: %w: got %d scores for %d categories",
			core.ErrSchemaMismatch, len(dist), len(f.cfg.Categories))
	}
	for i, p := range dist {
		if _, err := checkProbability(fmt.Sprintf("expense_category[%d]", i), p); err != nil {
			return err
		}
	}
	return nil
}

// predictorError tags a predictor failure. Schema mismatches keep their own
// tag; everything else means the score could not be obtained.
func predictorError(name string, err error) error {
	if errors.Is(err, core.ErrSchemaMismatch) || errors.Is(err, core.ErrPredictorUnavailable) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %w", name, core.ErrPredictorUnavailable, err)
}

func checkProbability(name string, p float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%s: %w: score %v outside [0,1]", name, core.ErrPredictorUnavailable, p)
	}
	return p, nil
}

// argmax returns the index of the largest value; the lowest index wins ties.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func cloneVector(v features.Vector) features.Vector {
	v.Fields = slices.Clone(v.Fields)
	v.Values = slices.Clone(v.Values)
	return v
}
