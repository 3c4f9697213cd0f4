package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	applog "finanzas/internal/log"
	"finanzas/internal/ports"
	"finanzas/internal/services"
)

// RecurrenceWorker expands recurring transactions handed over by the API
// through AMQP.
type RecurrenceWorker struct {
	store    ports.TransactionStore
	expander *services.RecurrenceExpander
	now      func() time.Time
}

func NewRecurrenceWorker(store ports.TransactionStore, expander *services.RecurrenceExpander) *RecurrenceWorker {
	return &RecurrenceWorker{
		store:    store,
		expander: expander,
		now:      time.Now,
	}
}

// HandleRecurrenceMessage processes a single expansion message. A
// transaction deleted before the message arrived is acknowledged and
// skipped; any other failure is returned so the message is requeued.
func (w *RecurrenceWorker) HandleRecurrenceMessage(ctx context.Context, msg *amqp.RecurrenceExpansionMessage) error {
	slog.InfoContext(ctx, "Processing recurrence message",
		applog.FieldProfileID, msg.ProfileID,
		applog.FieldTransactionID, msg.TransactionID)

	created, err := w.expander.Expand(ctx, msg.ProfileID, msg.TransactionID, w.now())
	if errors.Is(err, ports.ErrNotFound) {
		slog.WarnContext(ctx, "Recurring transaction no longer exists, skipping",
			applog.FieldTransactionID, msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("expand recurrence: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence message processed",
		applog.FieldTransactionID, msg.TransactionID,
		applog.FieldCount, len(created))
	return nil
}

// ExpandPending expands every recurring transaction of every profile. It is
// the backup for lost messages and carries recurrences into a new year; the
// expansion mark on each base keeps it from recreating deleted follow-ons.
func (w *RecurrenceWorker) ExpandPending(ctx context.Context) error {
	txs, err := w.store.ListRecurring(ctx)
	if err != nil {
		return fmt.Errorf("list recurring transactions: %w", err)
	}

	now := w.now()
	profiles := map[string]struct{}{}
	var created, failed int
	for _, tx := range txs {
		profiles[tx.ProfileID] = struct{}{}

		out, err := w.expander.ExpandTransaction(ctx, tx, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to expand recurrence",
				applog.FieldProfileID, tx.ProfileID,
				applog.FieldTransactionID, tx.ID,
				"error", err)
			failed++
			continue
		}
		created += len(out)
	}

	if len(txs) > 0 {
		slog.InfoContext(ctx, "Pending recurrences checked",
			"profiles", len(profiles),
			"recurring", len(txs),
			"created", created,
			"errors", failed)
	}
	return nil
}

// RunPeriodic calls ExpandPending every interval until ctx is done.
func (w *RecurrenceWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ExpandPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic recurrence check failed", "error", err)
			}
		}
	}
}
