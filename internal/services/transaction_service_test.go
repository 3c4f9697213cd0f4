package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ports"
	"finanzas/internal/storage/memory"
)

var testRates = core.Rates{BCV: 36, Parallel: 40, EUR: 39.6, EURCross: 1.1}

type fakePublisher struct {
	calls [][2]string
	err   error
}

func (p *fakePublisher) PublishRecurrence(_ context.Context, profileID, id string) error {
	p.calls = append(p.calls, [2]string{profileID, id})
	return p.err
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

func newTestService(store *memory.Store, opts ...TransactionOption) *TransactionService {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	base := []TransactionOption{
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return now }),
	}
	return NewTransactionService(store, store, append(base, opts...)...)
}

func TestTransactionService_CreateFreezesConversion(t *testing.T) {
	tests := []struct {
		name         string
		in           TransactionInput
		wantRate     float64
		wantUSD      float64
		wantRateType core.RateType
	}{
		{
			name:         "local at bcv",
			in:           TransactionInput{Segment: core.SegmentGastosFijos, Amount: 3600, Currency: core.CurrencyLocal, Category: "Alquiler", Date: "2026-03-01"},
			wantRate:     36,
			wantUSD:      100,
			wantRateType: core.RateBCV,
		},
		{
			name:         "local at parallel",
			in:           TransactionInput{Segment: core.SegmentGastosVariables, Amount: 4000, Currency: core.CurrencyLocal, RateType: core.RateParallel, Category: "Comida", Date: "2026-03-01"},
			wantRate:     40,
			wantUSD:      100,
			wantRateType: core.RateParallel,
		},
		{
			name:         "local at manual rate",
			in:           TransactionInput{Segment: core.SegmentIngresos, Amount: 3600, Currency: core.CurrencyLocal, RateType: core.RateManual, CustomRate: 50, Category: "Ventas", Date: "2026-03-01"},
			wantRate:     50,
			wantUSD:      72,
			wantRateType: core.RateManual,
		},
		{
			name:         "usd",
			in:           TransactionInput{Segment: core.SegmentIngresos, Amount: 1000, Currency: core.CurrencyUSD, Category: "Salario", Date: "2026-03-01"},
			wantRate:     1,
			wantUSD:      1000,
			wantRateType: core.RateBCV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewWithRates(testRates)
			svc := newTestService(store)

			tx, err := svc.Create(context.Background(), "p1", tt.in)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if tx.OriginalRate != tt.wantRate {
				t.Errorf("OriginalRate = %v, want %v", tx.OriginalRate, tt.wantRate)
			}
			if tx.AmountUSD != tt.wantUSD {
				t.Errorf("AmountUSD = %v, want %v", tx.AmountUSD, tt.wantUSD)
			}
			if tx.RateType != tt.wantRateType {
				t.Errorf("RateType = %q, want %q", tx.RateType, tt.wantRateType)
			}
			if tx.Type != tt.in.Segment.Type() {
				t.Errorf("Type = %q, want %q", tx.Type, tt.in.Segment.Type())
			}
			if tx.Date != "2026-03-01T00:00:00.000Z" {
				t.Errorf("Date = %q", tx.Date)
			}

			stored, err := store.Get(context.Background(), "p1", tx.ID)
			if err != nil {
				t.Fatalf("stored transaction missing: %v", err)
			}
			if stored != tx {
				t.Errorf("stored = %+v, want %+v", stored, tx)
			}
		})
	}
}

func TestTransactionService_CreateRejectsInvalidInput(t *testing.T) {
	valid := TransactionInput{Segment: core.SegmentIngresos, Amount: 10, Currency: core.CurrencyUSD, Category: "Salario", Date: "2026-01-01"}

	tests := []struct {
		name   string
		rates  core.Rates
		mutate func(*TransactionInput)
		want   error
	}{
		{"unknown segment", testRates, func(in *TransactionInput) { in.Segment = "otros" }, core.ErrInvalidSegment},
		{"zero amount", testRates, func(in *TransactionInput) { in.Amount = 0 }, core.ErrInvalidAmount},
		{"unknown currency", testRates, func(in *TransactionInput) { in.Currency = "GBP" }, core.ErrInvalidCurrency},
		{"blank category", testRates, func(in *TransactionInput) { in.Category = "  " }, core.ErrEmptyCategory},
		{"bad date", testRates, func(in *TransactionInput) { in.Date = "yesterday" }, core.ErrInvalidDate},
		{"bad recurrence", testRates, func(in *TransactionInput) { in.Recurrence = "daily" }, core.ErrInvalidRecurrence},
		{"bad rate type", testRates, func(in *TransactionInput) { in.RateType = "black" }, core.ErrInvalidRateType},
		{
			name:  "local without rate",
			rates: core.Rates{},
			mutate: func(in *TransactionInput) {
				in.Currency = core.CurrencyLocal
			},
			want: core.ErrRateUnavailable,
		},
		{
			name:  "manual without custom rate",
			rates: testRates,
			mutate: func(in *TransactionInput) {
				in.Currency = core.CurrencyLocal
				in.RateType = core.RateManual
			},
			want: core.ErrRateUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewWithRates(tt.rates)
			svc := newTestService(store)

			in := valid
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), "p1", in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create() error = %v, want %v", err, tt.want)
			}
			if !IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}

			txs, _ := store.List(context.Background(), "p1")
			if len(txs) != 0 {
				t.Errorf("invalid transaction was stored: %+v", txs)
			}
		})
	}
}

func TestTransactionService_CreateEmptyDateDefaultsToNow(t *testing.T) {
	svc := newTestService(memory.NewWithRates(testRates))
	tx, err := svc.Create(context.Background(), "p1", TransactionInput{
		Segment: core.SegmentIngresos, Amount: 1, Currency: core.CurrencyUSD, Category: "Otros Ingresos",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tx.Date != "2026-10-15T09:00:00.000Z" {
		t.Errorf("Date = %q", tx.Date)
	}
}

func TestTransactionService_RecurringExpandedInline(t *testing.T) {
	store := memory.NewWithRates(testRates)
	changes := 0
	svc := newTestService(store, WithChangeHook(func() { changes++ }))

	base, err := svc.Create(context.Background(), "p1", TransactionInput{
		Segment:    core.SegmentGastosFijos,
		Amount:     3600,
		Currency:   core.CurrencyLocal,
		Category:   "Alquiler",
		Date:       "2026-01-15T12:00:00.000Z",
		Recurrence: core.RecurMonthly,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	txs, _ := store.List(context.Background(), "p1")
	// Jan 15 plus Feb..Dec.
	if len(txs) != 12 {
		t.Fatalf("stored %d transactions, want 12", len(txs))
	}
	if changes != 2 {
		t.Errorf("change hook ran %d times, want 2", changes)
	}
	for _, tx := range txs {
		if tx.ID == base.ID {
			continue
		}
		if tx.AmountUSD != base.AmountUSD || tx.OriginalRate != base.OriginalRate || tx.Amount != base.Amount {
			t.Errorf("follow-on %s does not copy the frozen conversion: %+v", tx.Date, tx)
		}
		if tx.Recurrence != core.RecurNone {
			t.Errorf("follow-on %s recurrence = %q, want none", tx.Date, tx.Recurrence)
		}
	}
	if txs[0].Date != "2026-12-15T12:00:00.000Z" {
		t.Errorf("newest follow-on date = %q", txs[0].Date)
	}
}

func TestTransactionService_RecurringPublished(t *testing.T) {
	t.Run("publishes instead of expanding", func(t *testing.T) {
		store := memory.NewWithRates(testRates)
		pub := &fakePublisher{}
		svc := newTestService(store, WithPublisher(pub))

		tx, err := svc.Create(context.Background(), "p1", TransactionInput{
			Segment: core.SegmentIngresos, Amount: 100, Currency: core.CurrencyUSD,
			Category: "Salario", Date: "2026-01-01", Recurrence: core.RecurQuarterly,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(pub.calls) != 1 || pub.calls[0] != [2]string{"p1", tx.ID} {
			t.Errorf("publish calls = %v", pub.calls)
		}
		txs, _ := store.List(context.Background(), "p1")
		if len(txs) != 1 {
			t.Errorf("stored %d transactions, want 1", len(txs))
		}
	})

	t.Run("publish failure does not fail create", func(t *testing.T) {
		store := memory.NewWithRates(testRates)
		pub := &fakePublisher{err: errors.New("broker down")}
		svc := newTestService(store, WithPublisher(pub))

		_, err := svc.Create(context.Background(), "p1", TransactionInput{
			Segment: core.SegmentIngresos, Amount: 100, Currency: core.CurrencyUSD,
			Category: "Salario", Date: "2026-01-01", Recurrence: core.RecurWeekly,
		})
		if err != nil {
			t.Fatalf("Create() error = %v, want nil", err)
		}
	})

	t.Run("non-recurring is not published", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := newTestService(memory.NewWithRates(testRates), WithPublisher(pub))

		for _, rule := range []core.RecurrenceRule{"", core.RecurNone} {
			_, err := svc.Create(context.Background(), "p1", TransactionInput{
				Segment: core.SegmentIngresos, Amount: 100, Currency: core.CurrencyUSD,
				Category: "Salario", Date: "2026-01-01", Recurrence: rule,
			})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
		}
		if len(pub.calls) != 0 {
			t.Errorf("publish calls = %v, want none", pub.calls)
		}
	})
}

func TestTransactionService_Update(t *testing.T) {
	store := memory.NewWithRates(testRates)
	svc := newTestService(store)
	ctx := context.Background()

	tx, err := svc.Create(ctx, "p1", TransactionInput{
		Segment: core.SegmentGastosVariables, Amount: 3600, Currency: core.CurrencyLocal, Category: "Comida", Date: "2026-02-01",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The new snapshot is used when the edit is saved.
	if err := store.SaveRates(ctx, core.Rates{BCV: 72}); err != nil {
		t.Fatal(err)
	}
	updated, err := svc.Update(ctx, "p1", tx.ID, TransactionInput{
		Segment: core.SegmentGastosVariables, Amount: 3600, Currency: core.CurrencyLocal, Category: "Mercado", Date: "2026-02-02",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != tx.ID || updated.AmountUSD != 50 || updated.Category != "Mercado" {
		t.Errorf("Update() = %+v", updated)
	}

	_, err = svc.Update(ctx, "p2", tx.ID, TransactionInput{
		Segment: core.SegmentGastosVariables, Amount: 1, Currency: core.CurrencyUSD, Category: "Comida", Date: "2026-02-02",
	})
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Update() other profile error = %v, want ErrNotFound", err)
	}
}

func TestTransactionService_CreateStampsCreatedAt(t *testing.T) {
	svc := newTestService(memory.NewWithRates(testRates))
	tx, err := svc.Create(context.Background(), "p1", TransactionInput{
		Segment: core.SegmentIngresos, Amount: 1, Currency: core.CurrencyUSD, Category: "Bonos", Date: "2026-01-01",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tx.CreatedAt != "2026-10-15T09:00:00.000Z" {
		t.Errorf("CreatedAt = %q", tx.CreatedAt)
	}
}

func TestTransactionService_UpdateMovedBaseDoesNotDoubleSeries(t *testing.T) {
	store := memory.NewWithRates(testRates)
	svc := newTestService(store)
	ctx := context.Background()

	in := TransactionInput{
		Segment: core.SegmentGastosFijos, Amount: 3600, Currency: core.CurrencyLocal,
		Category: "Alquiler", Date: "2026-01-15", Recurrence: core.RecurMonthly,
	}
	base, err := svc.Create(ctx, "p1", in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	in.Date = "2026-01-20"
	updated, err := svc.Update(ctx, "p1", base.ID, in)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ExpandedUntil != "2026-12-31" || updated.CreatedAt != base.CreatedAt {
		t.Errorf("Update() dropped stored fields: %+v", updated)
	}

	exp := NewRecurrenceExpander(store, nil)
	created, err := exp.ExpandTransaction(ctx, updated, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExpandTransaction() error = %v", err)
	}
	if len(created) != 0 {
		t.Errorf("moved base expanded into %d more follow-ons this year", len(created))
	}
	txs, _ := store.List(ctx, "p1")
	if len(txs) != 12 {
		t.Errorf("stored %d transactions, want 12", len(txs))
	}
}

func TestTransactionService_Delete(t *testing.T) {
	store := memory.NewWithRates(testRates)
	changes := 0
	svc := newTestService(store, WithChangeHook(func() { changes++ }))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		tx, err := svc.Create(ctx, "p1", TransactionInput{
			Segment: core.SegmentIngresos, Amount: 10, Currency: core.CurrencyUSD, Category: "Bonos", Date: "2026-01-01",
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tx.ID)
	}
	changes = 0

	if err := svc.Delete(ctx, "p1", ids[0]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, "p1", ids[0]); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	n, err := svc.BulkDelete(ctx, "p1", []string{ids[1], ids[1], "missing", " ", ids[2]})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if n != 2 {
		t.Errorf("BulkDelete() = %d, want 2", n)
	}

	n, err = svc.BulkDelete(ctx, "p1", nil)
	if err != nil || n != 0 {
		t.Errorf("BulkDelete(nil) = %d, %v", n, err)
	}
	if changes != 2 {
		t.Errorf("change hook ran %d times, want 2", changes)
	}

	txs, _ := svc.List(ctx, "p1")
	if len(txs) != 0 {
		t.Errorf("List() after deletes = %+v", txs)
	}
}
