package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/currency"
	applog "finanzas/internal/log"
	"finanzas/internal/ports"
)

// TransactionInput is what a caller provides to create or replace a
// transaction. The type, id and frozen conversion are derived.
type TransactionInput struct {
	Segment     core.Segment        `json:"segment"`
	Amount      float64             `json:"amount"`
	Currency    core.Currency       `json:"currency"`
	RateType    core.RateType       `json:"rateType,omitempty"`
	CustomRate  float64             `json:"customRate,omitempty"`
	Category    string              `json:"category"`
	Description string              `json:"description,omitempty"`
	Date        string              `json:"date"`
	Recurrence  core.RecurrenceRule `json:"recurrence,omitempty"`
}

// TransactionService orchestrates transaction writes across the store and
// the recurrence publisher.
type TransactionService struct {
	store     ports.TransactionStore
	rates     ports.RateStore
	publisher ports.RecurrencePublisher
	expander  *RecurrenceExpander

	defaultRateType core.RateType
	now             func() time.Time
	newID           func() string
	onChange        func()
}

type TransactionOption func(*TransactionService)

// WithPublisher hands recurring transactions to a background worker instead
// of expanding them inline.
func WithPublisher(p ports.RecurrencePublisher) TransactionOption {
	return func(s *TransactionService) { s.publisher = p }
}

func WithDefaultRateType(rt core.RateType) TransactionOption {
	return func(s *TransactionService) { s.defaultRateType = rt }
}

func WithClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) { s.now = now }
}

func WithIDGenerator(newID func() string) TransactionOption {
	return func(s *TransactionService) { s.newID = newID }
}

// WithChangeHook registers fn to run after every successful mutation.
func WithChangeHook(fn func()) TransactionOption {
	return func(s *TransactionService) { s.onChange = fn }
}

func NewTransactionService(store ports.TransactionStore, rates ports.RateStore, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{
		store:           store,
		rates:           rates,
		defaultRateType: core.RateBCV,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.expander = NewRecurrenceExpander(store, s.onChange)
	return s
}

// Create validates the input, freezes the conversion with the latest rate
// snapshot and saves the transaction. A recurring transaction is then
// published for expansion, or expanded inline when no publisher is set.
func (s *TransactionService) Create(ctx context.Context, profileID string, in TransactionInput) (core.Transaction, error) {
	tx, err := s.build(ctx, profileID, s.newID(), in)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = core.FormatISO(s.now())

	// Save first, expansion is best effort
	if err := s.store.Insert(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	applog.NewEvents(applog.FromContext(ctx)).TransactionCreated(ctx, tx)
	s.changed()

	if isRecurring(tx.Recurrence) {
		s.scheduleExpansion(ctx, tx)
	}
	return tx, nil
}

func (s *TransactionService) scheduleExpansion(ctx context.Context, tx core.Transaction) {
	if s.publisher != nil {
		if err := s.publisher.PublishRecurrence(ctx, tx.ProfileID, tx.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish recurrence expansion",
				applog.FieldTransactionID, tx.ID,
				applog.FieldRecurrence, string(tx.Recurrence),
				"error", err)
		}
		return
	}

	if _, err := s.expander.ExpandTransaction(ctx, tx, s.now()); err != nil {
		slog.ErrorContext(ctx, "Failed to expand recurrence inline",
			applog.FieldTransactionID, tx.ID,
			applog.FieldRecurrence, string(tx.Recurrence),
			"error", err)
	}
}

// Update replaces an existing transaction wholesale. The conversion is
// frozen again with the current snapshot. Follow-ons are not regenerated:
// the creation time and the expansion mark carry over, so a moved or
// re-ruled base continues in the first year it has not been expanded for.
func (s *TransactionService) Update(ctx context.Context, profileID, id string, in TransactionInput) (core.Transaction, error) {
	cur, err := s.store.Get(ctx, profileID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}

	tx, err := s.build(ctx, profileID, id, in)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = cur.CreatedAt
	tx.ExpandedUntil = cur.ExpandedUntil
	if err := s.store.Update(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		applog.FieldTransactionID, tx.ID,
		applog.FieldAmountUSD, tx.AmountUSD)
	s.changed()
	return tx, nil
}

func (s *TransactionService) Get(ctx context.Context, profileID, id string) (core.Transaction, error) {
	tx, err := s.store.Get(ctx, profileID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

// Delete removes one transaction, returning ports.ErrNotFound when it does
// not exist.
func (s *TransactionService) Delete(ctx context.Context, profileID, id string) error {
	n, err := s.store.Delete(ctx, profileID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, ports.ErrNotFound)
	}
	s.changed()
	return nil
}

// BulkDelete removes every listed id that exists and reports how many were
// deleted. Unknown and repeated ids are ignored.
func (s *TransactionService) BulkDelete(ctx context.Context, profileID string, ids []string) (int, error) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return 0, nil
	}

	n, err := s.store.Delete(ctx, profileID, unique...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete transactions: %w", err)
	}
	if n > 0 {
		s.changed()
	}
	return n, nil
}

func (s *TransactionService) List(ctx context.Context, profileID string) ([]core.Transaction, error) {
	txs, err := s.store.List(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) build(ctx context.Context, profileID, id string, in TransactionInput) (core.Transaction, error) {
	rateType := in.RateType
	if rateType == "" {
		rateType = s.defaultRateType
	}

	tx := core.Transaction{
		ID:          id,
		Type:        in.Segment.Type(),
		Segment:     in.Segment,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        normalizeDate(in.Date, s.now()),
		ProfileID:   profileID,
		RateType:    rateType,
		Recurrence:  in.Recurrence,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	rates, err := s.rates.LatestRates(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load rates: %w", err)
	}
	tx.OriginalRate, tx.AmountUSD = currency.Freeze(tx.Amount, tx.Currency, rates, rateType, in.CustomRate)
	if tx.OriginalRate == 0 {
		return core.Transaction{}, fmt.Errorf("freeze %s amount with %s rate: %w", tx.Currency, rateType, core.ErrRateUnavailable)
	}
	return tx, nil
}

// normalizeDate turns a bare YYYY-MM-DD into a UTC instant and defaults an
// empty date to now. Instants are kept as written.
func normalizeDate(date string, now time.Time) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return core.FormatISO(now)
	}
	if len(date) == len(core.DateLayout) {
		if t, err := time.Parse(core.DateLayout, date); err == nil {
			return core.FormatISO(t)
		}
	}
	return date
}

func isRecurring(r core.RecurrenceRule) bool {
	return r != "" && r != core.RecurNone
}

func (s *TransactionService) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// IsValidation reports whether err was caused by invalid input rather than
// a storage or transport failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidCurrency,
		core.ErrInvalidSegment,
		core.ErrInvalidRateType,
		core.ErrInvalidDate,
		core.ErrInvalidRecurrence,
		core.ErrTypeMismatch,
		core.ErrEmptyCategory,
		core.ErrDescriptionTooLong,
		core.ErrNegativeLimit,
		core.ErrInvalidView,
		core.ErrInvalidGranularity,
		core.ErrRateUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
