package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"finadvisor/internal/classify"
	"finadvisor/internal/core"
	"finadvisor/internal/features"
	"finadvisor/internal/services"
)

// Tables holds the advisory lookup tables: feature schema, optional
// scaler, model category labels, decision thresholds and the ordered
// keyword rules. It is read once at startup.
type Tables struct {
	Categories []string        `toml:"categories"`
	Schema     SchemaTable     `toml:"schema"`
	Scaler     *ScalerTable    `toml:"scaler,omitempty"`
	Thresholds ThresholdsTable `toml:"thresholds"`
	Keywords   []KeywordRule   `toml:"keywords"`
}

// SchemaTable is the feature schema section.
type SchemaTable struct {
	Version   string   `toml:"version"`
	Encoding  string   `toml:"encoding"`
	Merchants []string `toml:"merchants"`
}

// ScalerTable holds standardization parameters in schema field order.
type ScalerTable struct {
	Mean  []float64 `toml:"mean"`
	Scale []float64 `toml:"scale"`
}

// ThresholdsTable holds the probability cut-offs for the binary models.
type ThresholdsTable struct {
	BillDue    float64 `toml:"bill_due"`
	LowBalance float64 `toml:"low_balance"`
}

// KeywordRule maps a description keyword to a category. Rules are an array
// of tables so file order is the match order.
type KeywordRule struct {
	Keyword  string `toml:"keyword"`
	Category string `toml:"category"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() Tables {
	schema := features.DefaultSchema()
	th := services.DefaultThresholds()

	t := Tables{
		Categories: services.DefaultCategories(),
		Schema: SchemaTable{
			Version:   schema.Version,
			Encoding:  string(schema.Encoding),
			Merchants: schema.Merchants,
		},
		Thresholds: ThresholdsTable{BillDue: th.BillDue, LowBalance: th.LowBalance},
	}
	for _, r := range classify.DefaultTable() {
		t.Keywords = append(t.Keywords, KeywordRule{Keyword: r.Keyword, Category: string(r.Category)})
	}
	return t
}

// LoadTables reads the tables file at path over the defaults. An empty
// path returns the defaults.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading tables: %w", err)
	}

	var file Tables
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return t, fmt.Errorf("parsing tables: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return t, fmt.Errorf("parsing tables: unknown keys %v", undecoded)
	}

	if md.IsDefined("categories") {
		t.Categories = file.Categories
	}
	if md.IsDefined("schema") {
		t.Schema = file.Schema
	}
	if md.IsDefined("scaler") {
		t.Scaler = file.Scaler
	}
	if md.IsDefined("thresholds", "bill_due") {
		t.Thresholds.BillDue = file.Thresholds.BillDue
	}
	if md.IsDefined("thresholds", "low_balance") {
		t.Thresholds.LowBalance = file.Thresholds.LowBalance
	}
	if md.IsDefined("keywords") {
		t.Keywords = file.Keywords
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// SaveTables writes t to path, creating parent directories.
func SaveTables(path string, t Tables) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating tables dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating tables file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(t)
}

// Validate checks the tables form a usable forecast configuration and a
// well-formed keyword table.
func (t Tables) Validate() error {
	var problems []string
	if _, err := t.ForecastConfig(); err != nil {
		problems = append(problems, err.Error())
	}
	for i, r := range t.Keywords {
		if strings.TrimSpace(r.Keyword) == "" {
			problems = append(problems, fmt.Sprintf("keyword rule %d has an empty keyword", i))
		}
		if strings.TrimSpace(r.Category) == "" {
			problems = append(problems, fmt.Sprintf("keyword rule %d (%q) has an empty category", i, r.Keyword))
		}
	}
	if len(problems) > 0 {
		return errors.New("invalid tables: " + strings.Join(problems, "; "))
	}
	return nil
}

// FeatureSchema returns the schema section as a features.Schema.
func (t Tables) FeatureSchema() features.Schema {
	return features.Schema{
		Version:   t.Schema.Version,
		Merchants: append([]string(nil), t.Schema.Merchants...),
		Encoding:  features.Encoding(t.Schema.Encoding),
	}
}

// ForecastConfig builds and validates the forecaster configuration.
func (t Tables) ForecastConfig() (services.ForecastConfig, error) {
	schema := t.FeatureSchema()
	cfg := services.ForecastConfig{
		Schema:     schema,
		Categories: append([]string(nil), t.Categories...),
		Thresholds: services.Thresholds{
			BillDue:    t.Thresholds.BillDue,
			LowBalance: t.Thresholds.LowBalance,
		},
	}
	if t.Scaler != nil {
		cfg.Scaler = &features.Scaler{
			SchemaVersion: schema.Version,
			Fields:        schema.Fields(),
			Mean:          append([]float64(nil), t.Scaler.Mean...),
			Scale:         append([]float64(nil), t.Scaler.Scale...),
		}
	}
	if err := cfg.Validate(); err != nil {
		return services.ForecastConfig{}, err
	}
	return cfg, nil
}

// KeywordTable returns the keyword rules in declared order.
func (t Tables) KeywordTable() classify.KeywordTable {
	table := make(classify.KeywordTable, 0, len(t.Keywords))
	for _, r := range t.Keywords {
		table = append(table, classify.Rule{Keyword: r.Keyword, Category: core.Category(r.Category)})
	}
	return table
}
