package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorCode     = "error_code"
	FieldOperation     = "operation"
	FieldAmountCents   = "amount_cents"
	FieldBalanceCents  = "balance_cents"
	FieldMerchant      = "merchant"
	FieldSchemaVersion = "schema_version"
	FieldBillID        = "bill_id"
	FieldBillName      = "bill_name"
	FieldDaysLeft      = "days_left"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentForecast  = "forecast"
	ComponentAdvisory  = "advisory"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentNotifier  = "notifier"
	ComponentPredictor = "predictor"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpForecast = "forecast"
	OpAdvise   = "advise"
	OpRemind   = "remind"
	OpProject  = "project"
	OpCreate   = "create"
	OpList     = "list"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message and its stable code.
func (f LogFields) WithError(err error, code string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorCode] = code
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the raw transaction fields worth logging.
func (f LogFields) WithTransaction(merchant string, amountCents, balanceCents int64) LogFields {
	f[FieldMerchant] = merchant
	f[FieldAmountCents] = amountCents
	f[FieldBalanceCents] = balanceCents
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
