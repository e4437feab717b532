// Package classify implements deterministic keyword-based expense
// categorization. It needs no statistical model and never fails: a
// description no rule recognises is labelled core.CategoryOther.
package classify

import (
	"strings"

	"finadvisor/internal/core"
)

// Rule maps a keyword to a category.
type Rule struct {
	Keyword  string
	Category core.Category
}

// KeywordTable is an ordered rule list. When several keywords occur in a
// description, the rule declared first wins.
type KeywordTable []Rule

// DefaultTable mirrors the categories shipped with the sample data.
func DefaultTable() KeywordTable {
	return KeywordTable{
		{Keyword: "grocery", Category: "Food"},
		{Keyword: "movie", Category: "Entertainment"},
		{Keyword: "bus", Category: "Transport"},
		{Keyword: "restaurant", Category: "Food"},
	}
}

// Match is the outcome of classifying one description.
type Match struct {
	Category core.Category
	Keyword  string // empty for the fallback
	Rule     int    // index in the table, -1 for the fallback
}

// Matched reports whether a rule (rather than the fallback) applied.
func (m Match) Matched() bool {
	return m.Rule >= 0
}

// Classify returns the category for description using table.
func Classify(description string, table KeywordTable) core.Category {
	return New(table).Classify(description)
}

// Classifier holds a lower-cased copy of a table.
type Classifier struct {
	rules []Rule
}

// New builds a classifier. Empty keywords are skipped since they would match
// every description.
func New(table KeywordTable) *Classifier {
	rules := make([]Rule, 0, len(table))
	for _, r := range table {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		rules = append(rules, Rule{Keyword: kw, Category: r.Category})
	}
	return &Classifier{rules: rules}
}

// Classify returns the category of the first matching rule, or Other.
func (c *Classifier) Classify(description string) core.Category {
	return c.Explain(description).Category
}

// Explain is Classify plus the rule that decided it.
func (c *Classifier) Explain(description string) Match {
	desc := strings.ToLower(description)
	for i, r := range c.rules {
		if strings.Contains(desc, r.Keyword) {
			return Match{Category: r.Category, Keyword: r.Keyword, Rule: i}
		}
	}
	return Match{Category: core.CategoryOther, Rule: -1}
}

// ClassifyAll labels every expense independently, returning tagged copies.
func (c *Classifier) ClassifyAll(expenses []core.Expense) []core.Expense {
	out := make([]core.Expense, len(expenses))
	for i, e := range expenses {
		e.Category = c.Classify(e.Description)
		out[i] = e
	}
	return out
}

// Categories returns the distinct categories in declaration order, followed
// by the fallback.
func (c *Classifier) Categories() []core.Category {
	seen := make(map[core.Category]struct{})
	var out []core.Category
	for _, r := range c.rules {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	if _, ok := seen[core.CategoryOther]; !ok {
		out = append(out, core.CategoryOther)
	}
	return out
}
