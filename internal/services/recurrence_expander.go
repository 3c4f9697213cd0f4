package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/ports"
	"finanzas/internal/recurrence"
)

// RecurrenceExpander materializes the follow-on transactions of a recurring
// transaction up to the end of the current year.
//
// The base records how far it has been expanded (ExpandedUntil) and only
// later dates are generated on the next pass, so a follow-on the user
// deleted is not brought back by a sweep. Follow-on ids are derived from the
// base id and the generated date, which keeps a retry after a partial
// failure from inserting duplicates.
type RecurrenceExpander struct {
	store    ports.TransactionStore
	onChange func()
}

func NewRecurrenceExpander(store ports.TransactionStore, onChange func()) *RecurrenceExpander {
	return &RecurrenceExpander{store: store, onChange: onChange}
}

// Expand loads the transaction and inserts its missing follow-ons.
func (e *RecurrenceExpander) Expand(ctx context.Context, profileID, id string, now time.Time) ([]core.Transaction, error) {
	base, err := e.store.Get(ctx, profileID, id)
	if err != nil {
		return nil, fmt.Errorf("get recurring transaction %s: %w", id, err)
	}
	return e.ExpandTransaction(ctx, base, now)
}

// ExpandTransaction inserts the follow-ons of base dated after its
// expansion mark, moves the mark to December 31 of now's year and returns
// the inserted follow-ons. Each follow-on copies the amount, currency and frozen
// conversion of base and does not recur itself.
func (e *RecurrenceExpander) ExpandTransaction(ctx context.Context, base core.Transaction, now time.Time) ([]core.Transaction, error) {
	if !isRecurring(base.Recurrence) {
		return nil, nil
	}

	dates := recurrence.GenerateISO(base.Date, base.Recurrence, now)
	if len(dates) == 0 {
		return nil, nil
	}

	pending := make([]core.Transaction, 0, len(dates))
	for _, d := range dates {
		if base.ExpandedUntil != "" && core.DatePart(d) <= base.ExpandedUntil {
			continue
		}
		next := base
		next.ID = FollowOnID(base.ID, d)
		next.Date = d
		next.Recurrence = core.RecurNone
		next.ExpandedUntil = ""
		next.CreatedAt = core.FormatISO(now)

		_, err := e.store.Get(ctx, base.ProfileID, next.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("check follow-on %s: %w", next.ID, err)
		}
		pending = append(pending, next)
	}

	if len(pending) > 0 {
		if err := e.store.Insert(ctx, pending...); err != nil {
			return nil, fmt.Errorf("insert follow-ons: %w", err)
		}
	}

	mark := fmt.Sprintf("%04d-12-31", now.UTC().Year())
	if mark <= base.ExpandedUntil {
		slog.DebugContext(ctx, "Recurrence already expanded", applog.FieldTransactionID, base.ID)
		return nil, nil
	}
	base.ExpandedUntil = mark
	if err := e.store.Update(ctx, base); err != nil {
		return nil, fmt.Errorf("mark %s expanded until %s: %w", base.ID, mark, err)
	}

	applog.NewEvents(applog.FromContext(ctx)).RecurrenceExpanded(ctx, base, len(pending))
	if e.onChange != nil {
		e.onChange()
	}
	return pending, nil
}

// FollowOnID is the id of the occurrence of base dated date.
func FollowOnID(baseID, date string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(baseID+"#"+date)).String()
}
