package core

import "errors"

// Advisory failures. Callers wrap these with fmt.Errorf("...: %w") and
// match them with errors.Is; none of them is ever downgraded to a default.
var (
	// ErrUnknownCategory is returned for a merchant or category outside
	// the configured schema.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidAmount is returned for negative or non-finite money values.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSchemaMismatch is returned when a feature vector disagrees with the
	// schema a scaler or predictor was fit against.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrPredictorUnavailable is returned when an external score function
	// could not be invoked or returned an unusable score.
	ErrPredictorUnavailable = errors.New("predictor unavailable")

	// ErrInvalidInput covers out-of-range raw fields (day, hour, ...).
	ErrInvalidInput = errors.New("invalid input")
)

// Error codes exposed to front-ends.
const (
	CodeUnknownCategory      = "unknown_category"
	CodeInvalidAmount        = "invalid_amount"
	CodeSchemaMismatch       = "schema_mismatch"
	CodePredictorUnavailable = "predictor_unavailable"
	CodeInvalidInput         = "invalid_input"
	CodeInternal             = "internal"
)

// ErrorCode returns the stable tag for err, or "" for a nil error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCategory):
		return CodeUnknownCategory
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrSchemaMismatch):
		return CodeSchemaMismatch
	case errors.Is(err, ErrPredictorUnavailable):
		return CodePredictorUnavailable
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}
