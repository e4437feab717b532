package features

import (
	"fmt"
	"strconv"
	"strings"

	"finadvisor/internal/core"
)

// Vector is an ordered feature vector tagged with the schema that produced it.
type Vector struct {
	SchemaVersion string
	Fields        []string
	Values        []float64
	Scaled        bool
}

// Len returns the number of values.
func (v Vector) Len() int {
	return len(v.Values)
}

// Key returns a stable string identifying the vector contents.
func (v Vector) Key() string {
	var b strings.Builder
	b.WriteString(v.SchemaVersion)
	if v.Scaled {
		b.WriteString("|s")
	}
	for _, x := range v.Values {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	return b.String()
}

// Encode converts tx into the unscaled vector described by schema. Numeric
// fields pass through untouched. A merchant outside the schema returns
// core.ErrUnknownCategory.
func Encode(tx core.Transaction, schema Schema) (Vector, error) {
	if err := tx.Validate(); err != nil {
		return Vector{}, fmt.Errorf("encode transaction: %w", err)
	}
	if !schema.Has(tx.Merchant) {
		return Vector{}, fmt.Errorf("encode transaction: %w: merchant %q not in schema %s",
			core.ErrUnknownCategory, tx.Merchant, schema.Version)
	}

	values := make([]float64, schema.Len())
	values[0] = tx.Amount.Euros()
	values[1] = float64(tx.DayOfMonth)
	values[2] = float64(tx.DayOfWeek)
	values[3] = float64(tx.Hour)
	values[4] = tx.Balance.Euros()
	if col, ok := schema.Column(tx.Merchant); ok {
		values[col] = 1
	}

	return Vector{
		SchemaVersion: schema.Version,
		Fields:        schema.Fields(),
		Values:        values,
	}, nil
}

// CheckSchema verifies v was produced by schema: same version, same field
// order, same length.
func CheckSchema(v Vector, schema Schema) error {
	if v.SchemaVersion != schema.Version {
		return fmt.Errorf("%w: vector schema %q, expected %q", core.ErrSchemaMismatch, v.SchemaVersion, schema.Version)
	}
	return checkFields(v, schema.Fields())
}

func checkFields(v Vector, fields []string) error {
	if len(v.Values) != len(fields) {
		return fmt.Errorf("%w: vector has %d values, expected %d", core.ErrSchemaMismatch, len(v.Values), len(fields))
	}
	if len(v.Fields) != len(fields) {
		return fmt.Errorf("%w: vector has %d field names, expected %d", core.ErrSchemaMismatch, len(v.Fields), len(fields))
	}
	for i, f := range fields {
		if v.Fields[i] != f {
			return fmt.Errorf("%w: field %d is %q, expected %q", core.ErrSchemaMismatch, i, v.Fields[i], f)
		}
	}
	return nil
}
