// Package features converts transactions into the fixed-order numeric
// vectors the external predictors were fit against.
//
// A Schema is the single source of truth for field order, length and
// merchant encoding. The same value is used when building training data and
// at inference time; scaling is a separate step bound to one schema version.
package features

import (
	"fmt"
	"strings"
)

// Encoding is the rule used for the merchant one-hot segment.
type Encoding string

const (
	// OneHot sets one column per merchant in Schema.Merchants order.
	OneHot Encoding = "onehot"
	// OneHotDropFirst omits the first merchant, which encodes as all zeros.
	OneHotDropFirst Encoding = "onehot-drop-first"
)

// Numeric field names, in vector order.
const (
	FieldAmount     = "amount"
	FieldDayOfMonth = "day_of_month"
	FieldDayOfWeek  = "day_of_week"
	FieldHour       = "hour"
	FieldBalance    = "balance"

	merchantPrefix = "mch_"
)

var numericFields = []string{FieldAmount, FieldDayOfMonth, FieldDayOfWeek, FieldHour, FieldBalance}

// NumericFields returns the fixed prefix of every vector.
func NumericFields() []string {
	return append([]string(nil), numericFields...)
}

// Schema describes a versioned feature layout.
type Schema struct {
	Version   string
	Merchants []string
	Encoding  Encoding
}

var defaultMerchants = []string{"Amazon", "Employer", "Landlord", "Netflix", "Spotify", "Walmart"}

// DefaultMerchants returns the merchant set the bundled models were trained on.
func DefaultMerchants() []string {
	return append([]string(nil), defaultMerchants...)
}

// DefaultSchema returns the authoritative v1 schema: full one-hot over
// DefaultMerchants.
func DefaultSchema() Schema {
	return Schema{
		Version:   "v1",
		Merchants: DefaultMerchants(),
		Encoding:  OneHot,
	}
}

// Validate checks the schema is usable for encoding.
func (s Schema) Validate() error {
	var problems []string
	if strings.TrimSpace(s.Version) == "" {
		problems = append(problems, "version cannot be empty")
	}
	switch s.Encoding {
	case OneHot:
		if len(s.Merchants) < 1 {
			problems = append(problems, "at least one merchant is required")
		}
	case OneHotDropFirst:
		if len(s.Merchants) < 2 {
			problems = append(problems, "drop-first encoding needs at least two merchants")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown encoding %q", s.Encoding))
	}
	seen := make(map[string]struct{}, len(s.Merchants))
	for _, m := range s.Merchants {
		if strings.TrimSpace(m) == "" {
			problems = append(problems, "merchant names cannot be empty")
			continue
		}
		if _, dup := seen[m]; dup {
			problems = append(problems, fmt.Sprintf("duplicate merchant %q", m))
		}
		seen[m] = struct{}{}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid feature schema: %s", strings.Join(problems, "; "))
	}
	return nil
}

// encodedMerchants returns the merchants that own a one-hot column.
func (s Schema) encodedMerchants() []string {
	if s.Encoding == OneHotDropFirst && len(s.Merchants) > 0 {
		return s.Merchants[1:]
	}
	return s.Merchants
}

// ReferenceMerchant returns the merchant encoded as all zeros, if any.
func (s Schema) ReferenceMerchant() (string, bool) {
	if s.Encoding == OneHotDropFirst && len(s.Merchants) > 0 {
		return s.Merchants[0], true
	}
	return "", false
}

// Fields returns the full ordered field list.
func (s Schema) Fields() []string {
	encoded := s.encodedMerchants()
	fields := make([]string, 0, len(numericFields)+len(encoded))
	fields = append(fields, numericFields...)
	for _, m := range encoded {
		fields = append(fields, merchantPrefix+m)
	}
	return fields
}

// Len is the vector length the schema produces.
func (s Schema) Len() int {
	return len(numericFields) + len(s.encodedMerchants())
}

// Column returns the vector index of the merchant's one-hot column. The
// boolean is false for the reference merchant and for unknown merchants;
// use Has to tell them apart.
func (s Schema) Column(merchant string) (int, bool) {
	for i, m := range s.encodedMerchants() {
		if m == merchant {
			return len(numericFields) + i, true
		}
	}
	return 0, false
}

// Has reports whether merchant belongs to the schema.
func (s Schema) Has(merchant string) bool {
	for _, m := range s.Merchants {
		if m == merchant {
			return true
		}
	}
	return false
}
