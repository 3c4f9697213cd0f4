package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"finanzas/internal/core"
)

// Events writes the log lines whose shape other tooling relies on: the
// access log, transaction creation, recurrence expansion and failures.
type Events struct {
	logger *Logger
}

// NewEvents returns an Events writing through logger.
func NewEvents(logger *Logger) *Events {
	return &Events{logger: logger}
}

// RequestStarted is logged at debug level; RequestFinished carries the
// outcome.
func (e *Events) RequestStarted(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().WithRequest(r.Method, r.URL.Path, r.URL.RawQuery)
	fields[FieldClientIP] = clientIP
	fields[FieldUserAgent] = r.UserAgent()
	e.logger.DebugContext(ctx, "HTTP request started", fields.Args()...)
}

// RequestFinished logs 4xx at warn and 5xx at error level.
func (e *Events) RequestFinished(ctx context.Context, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().WithRequest(r.Method, r.URL.Path, r.URL.RawQuery)
	fields[FieldStatusCode] = status
	fields[FieldDuration] = elapsed.Milliseconds()
	fields[FieldClientIP] = clientIP
	e.logger.Log(ctx, level, "HTTP request completed", fields.Args()...)
}

// TransactionCreated logs a persisted transaction together with the
// conversion that was frozen into it.
func (e *Events) TransactionCreated(ctx context.Context, tx core.Transaction) {
	fields := NewFields().
		WithTransaction(tx.ID, string(tx.Segment), string(tx.Currency), tx.Category, tx.Amount, tx.AmountUSD).
		WithProfile(tx.ProfileID).
		WithOperation(OpCreate)
	fields[FieldRecurrence] = string(tx.Recurrence)
	e.logger.WithComponent(ComponentTransaction).InfoContext(ctx, "Transaction created", fields.Args()...)
}

// RecurrenceExpanded logs the follow-ons inserted for a recurring
// transaction.
func (e *Events) RecurrenceExpanded(ctx context.Context, base core.Transaction, count int) {
	fields := NewFields().
		WithProfile(base.ProfileID).
		WithOperation(OpExpand)
	fields[FieldTransactionID] = base.ID
	fields[FieldRecurrence] = string(base.Recurrence)
	fields[FieldCount] = count
	e.logger.WithComponent(ComponentRecurrence).InfoContext(ctx, "Recurrence expanded", fields.Args()...)
}

// Failure logs err with the operation and component that produced it.
func (e *Events) Failure(ctx context.Context, msg string, err error, component, op string, fields Fields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(op)
	e.logger.WithComponent(component).ErrorContext(ctx, msg, fields.Args()...)
}
