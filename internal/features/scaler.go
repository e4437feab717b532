package features

import (
	"fmt"
	"math"

	"finadvisor/internal/core"
)

// Scaler standardizes vectors as (x - mean) / scale. It is fit for exactly
// one schema version and field order and refuses anything else.
type Scaler struct {
	SchemaVersion string
	Fields        []string
	Mean          []float64
	Scale         []float64
}

// IdentityScaler returns a scaler that leaves values unchanged for schema.
func IdentityScaler(schema Schema) Scaler {
	n := schema.Len()
	s := Scaler{
		SchemaVersion: schema.Version,
		Fields:        schema.Fields(),
		Mean:          make([]float64, n),
		Scale:         make([]float64, n),
	}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

// Validate checks the scaler is internally consistent and bound to schema.
func (s Scaler) Validate(schema Schema) error {
	if s.SchemaVersion != schema.Version {
		return fmt.Errorf("%w: scaler fit for schema %q, configured schema is %q",
			core.ErrSchemaMismatch, s.SchemaVersion, schema.Version)
	}
	fields := schema.Fields()
	if len(s.Fields) != len(fields) {
		return fmt.Errorf("%w: scaler has %d fields, schema has %d", core.ErrSchemaMismatch, len(s.Fields), len(fields))
	}
	for i := range fields {
		if s.Fields[i] != fields[i] {
			return fmt.Errorf("%w: scaler field %d is %q, schema field is %q",
				core.ErrSchemaMismatch, i, s.Fields[i], fields[i])
		}
	}
	if len(s.Mean) != len(fields) || len(s.Scale) != len(fields) {
		return fmt.Errorf("%w: scaler has %d means and %d scales for %d fields",
			core.ErrSchemaMismatch, len(s.Mean), len(s.Scale), len(fields))
	}
	for i := range fields {
		if math.IsNaN(s.Mean[i]) || math.IsInf(s.Mean[i], 0) || math.IsNaN(s.Scale[i]) || math.IsInf(s.Scale[i], 0) {
			return fmt.Errorf("scaler field %q has a non-finite parameter", fields[i])
		}
	}
	return nil
}

// Transform returns the standardized copy of v. The input must be an
// unscaled vector with the scaler's exact version and field order.
func (s Scaler) Transform(v Vector) (Vector, error) {
	if v.Scaled {
		return Vector{}, fmt.Errorf("%w: vector is already scaled", core.ErrSchemaMismatch)
	}
	if v.SchemaVersion != s.SchemaVersion {
		return Vector{}, fmt.Errorf("%w: vector schema %q, scaler fit for %q",
			core.ErrSchemaMismatch, v.SchemaVersion, s.SchemaVersion)
	}
	if err := checkFields(v, s.Fields); err != nil {
		return Vector{}, err
	}
	if len(s.Mean) != len(s.Fields) || len(s.Scale) != len(s.Fields) {
		return Vector{}, fmt.Errorf("%w: scaler parameters do not cover %d fields", core.ErrSchemaMismatch, len(s.Fields))
	}

	out := make([]float64, len(v.Values))
	for i, x := range v.Values {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (x - s.Mean[i]) / scale
	}
	return Vector{
		SchemaVersion: v.SchemaVersion,
		Fields:        append([]string(nil), v.Fields...),
		Values:        out,
		Scaled:        true,
	}, nil
}
