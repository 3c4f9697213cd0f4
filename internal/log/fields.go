package log

import (
	"maps"
	"slices"
)

// Field names shared by every log line.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldCount     = "count"
)

// HTTP fields.
const (
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
)

// Domain fields.
const (
	FieldProfileID     = "profile_id"
	FieldTransactionID = "transaction_id"
	FieldSegment       = "segment"
	FieldCurrency      = "currency"
	FieldAmount        = "amount"
	FieldAmountUSD     = "amount_usd"
	FieldCategory      = "category"
	FieldRecurrence    = "recurrence"
	FieldGranularity   = "granularity"
)

// Components
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentTrace       = "trace"
	ComponentTransaction = "transaction"
	ComponentRecurrence  = "recurrence"
)

// Operations
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpExpand = "expand"
	OpExport = "export"
)

// Fields accumulates key/value pairs for a single log call.
type Fields map[string]any

// NewFields returns an empty Fields.
func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

// WithError records err's message; a nil err is skipped.
func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f Fields) WithProfile(profileID string) Fields {
	if profileID != "" {
		f[FieldProfileID] = profileID
	}
	return f
}

// WithTransaction records the identity of a transaction and the conversion
// frozen into it.
func (f Fields) WithTransaction(id, segment, currency, category string, amount, amountUSD float64) Fields {
	f[FieldTransactionID] = id
	f[FieldSegment] = segment
	f[FieldCurrency] = currency
	f[FieldCategory] = category
	f[FieldAmount] = amount
	f[FieldAmountUSD] = amountUSD
	return f
}

func (f Fields) WithRequest(method, path, query string) Fields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

// Args flattens f into slog's alternating key/value form, keys sorted.
func (f Fields) Args() []any {
	args := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		args = append(args, k, f[k])
	}
	return args
}
