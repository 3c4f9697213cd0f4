package ports

import (
	"context"
	"errors"

	"finanzas/internal/core"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	TransactionStore interface {
		// Insert stores new transactions. Ids are assigned by the caller.
		Insert(ctx context.Context, txs ...core.Transaction) error
		Update(ctx context.Context, tx core.Transaction) error
		Get(ctx context.Context, profileID, id string) (core.Transaction, error)
		// Delete removes the given ids and reports how many existed.
		Delete(ctx context.Context, profileID string, ids ...string) (int, error)
		// List returns every transaction of a profile, newest first.
		List(ctx context.Context, profileID string) ([]core.Transaction, error)
		// ListRecurring returns the recurring transactions of all profiles.
		ListRecurring(ctx context.Context) ([]core.Transaction, error)
	}

	// SettingsStore persists per-profile budget limits and savings goals.
	SettingsStore interface {
		Budgets(ctx context.Context, profileID string) (core.Budgets, error)
		SetBudget(ctx context.Context, profileID, category string, limit float64) error
		DeleteBudget(ctx context.Context, profileID, category string) error
		Goals(ctx context.Context, profileID string) (core.SavingsGoals, error)
		SetGoal(ctx context.Context, profileID, category string, target float64) error
	}

	// RateStore keeps the most recent exchange-rate snapshot.
	RateStore interface {
		LatestRates(ctx context.Context) (core.Rates, error)
		SaveRates(ctx context.Context, r core.Rates) error
	}

	// Versioned stores expose a counter that moves forward on every
	// committed write, whichever process made it.
	Versioned interface {
		DataVersion(ctx context.Context) (int64, error)
	}

	// RecurrencePublisher hands a freshly created recurring transaction to
	// the background expander.
	RecurrencePublisher interface {
		PublishRecurrence(ctx context.Context, profileID, id string) error
	}

	// ReportExporter writes flattened report rows to an external destination.
	ReportExporter interface {
		ExportReport(ctx context.Context, title string, header []string, rows [][]any) (ref string, err error)
	}
)

// Store bundles every persistence port a backend must provide.
type Store interface {
	TransactionStore
	SettingsStore
	RateStore
	Versioned
}
