package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/finance"
	"finanzas/internal/storage/memory"
)

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) List(context.Context, string) ([]core.Transaction, error) {
	return nil, f.err
}

// countingStore counts transaction listings and, when gate is set, holds
// each one until gate is closed.
type countingStore struct {
	*memory.Store
	lists atomic.Int32
	gate  chan struct{}
}

func (c *countingStore) List(ctx context.Context, profileID string) ([]core.Transaction, error) {
	c.lists.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.Store.List(ctx, profileID)
}

type recordingExporter struct {
	title  string
	header []string
	rows   [][]any
}

func (e *recordingExporter) ExportReport(_ context.Context, title string, header []string, rows [][]any) (string, error) {
	e.title, e.header, e.rows = title, header, rows
	return "PyG!A1:C12", nil
}

func usdIncome(id, date string, amount float64) core.Transaction {
	return core.Transaction{
		ID: id, ProfileID: "p1", Type: core.Income, Segment: core.SegmentIngresos,
		Amount: amount, Currency: core.CurrencyUSD, OriginalRate: 1, AmountUSD: amount,
		Category: "Salario", Date: date,
	}
}

func TestReportService_DashboardMemoizedPerVersion(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewWithRates(testRates)}
	reports := NewReportService(store, nil, DefaultReportConfig())

	if err := store.Insert(ctx, usdIncome("a", "2026-03-01T10:00:00.000Z", 100)); err != nil {
		t.Fatal(err)
	}
	first, err := reports.Dashboard(ctx, "p1", core.ViewMonth, 3, 2026)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if first.Balance != 100 {
		t.Fatalf("Balance = %v, want 100", first.Balance)
	}
	if _, err := reports.Dashboard(ctx, "p1", core.ViewMonth, 3, 2026); err != nil {
		t.Fatal(err)
	}
	if n := store.lists.Load(); n != 1 {
		t.Errorf("transactions listed %d times, want 1", n)
	}

	reports.Invalidate()
	if _, err := reports.Dashboard(ctx, "p1", core.ViewMonth, 3, 2026); err != nil {
		t.Fatal(err)
	}
	if n := store.lists.Load(); n != 2 {
		t.Errorf("transactions listed %d times after Invalidate, want 2", n)
	}
}

func TestReportService_SeesWritesMadeOutsideTheServices(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWithRates(testRates)
	reports := NewReportService(store, nil, DefaultReportConfig())

	if err := store.Insert(ctx, usdIncome("a", "2026-03-01T10:00:00.000Z", 100)); err != nil {
		t.Fatal(err)
	}
	if got, _ := reports.Dashboard(ctx, "p1", core.ViewMonth, 3, 2026); got.Balance != 100 {
		t.Fatalf("Balance = %v, want 100", got.Balance)
	}

	// Straight to the store, the way the recurrence worker writes.
	if err := store.Insert(ctx, usdIncome("b", "2026-03-02T10:00:00.000Z", 50)); err != nil {
		t.Fatal(err)
	}
	got, err := reports.Dashboard(ctx, "p1", core.ViewMonth, 3, 2026)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if got.Balance != 150 {
		t.Errorf("Balance = %v, want 150", got.Balance)
	}
}

func TestReportService_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	store := &countingStore{Store: memory.NewWithRates(testRates), gate: make(chan struct{})}
	if err := store.Insert(context.Background(), usdIncome("a", "2026-03-01T10:00:00.000Z", 100)); err != nil {
		t.Fatal(err)
	}
	reports := NewReportService(store, nil, DefaultReportConfig())

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := reports.Dashboard(first, "p1", core.ViewMonth, 3, 2026)
		firstErr <- err
	}()
	for store.lists.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	type result struct {
		totals finance.DashboardTotals
		err    error
	}
	second := make(chan result, 1)
	go func() {
		got, err := reports.Dashboard(context.Background(), "p1", core.ViewMonth, 3, 2026)
		second <- result{got, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}
	close(store.gate)

	select {
	case r := <-second:
		if r.err != nil || r.totals.Balance != 100 {
			t.Errorf("waiting caller got %+v, %v", r.totals, r.err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiting caller never returned")
	}
}

func TestReportService_MutationsThroughServicesInvalidate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWithRates(testRates)
	reports := NewReportService(store, nil, DefaultReportConfig())
	txs := newTestService(store, WithChangeHook(reports.Invalidate))
	settings := NewSettingsService(store, store, reports.Invalidate)

	in := TransactionInput{Segment: core.SegmentAhorro, Amount: 200, Currency: core.CurrencyUSD, Category: "Vacaciones", Date: "2026-04-01"}
	if _, err := txs.Create(ctx, "p1", in); err != nil {
		t.Fatal(err)
	}
	goals, err := reports.Goals(ctx, "p1")
	if err != nil {
		t.Fatalf("Goals() error = %v", err)
	}
	if len(goals) != 0 {
		t.Fatalf("Goals() = %+v, want none", goals)
	}

	if err := settings.SetGoal(ctx, "p1", "Vacaciones", 400); err != nil {
		t.Fatal(err)
	}
	goals, _ = reports.Goals(ctx, "p1")
	if len(goals) != 1 || goals[0].Saved != 200 || goals[0].Percent != 50 {
		t.Fatalf("Goals() = %+v", goals)
	}

	if _, err := txs.Create(ctx, "p1", in); err != nil {
		t.Fatal(err)
	}
	goals, _ = reports.Goals(ctx, "p1")
	if goals[0].Saved != 400 || !goals[0].Reached {
		t.Errorf("Goals() after second saving = %+v", goals)
	}
}

func TestReportService_Budget(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWithRates(testRates)
	reports := NewReportService(store, nil, DefaultReportConfig())
	reports.now = func() time.Time { return time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC) }

	fixed := core.Transaction{
		ID: "f", ProfileID: "p1", Type: core.Expense, Segment: core.SegmentGastosFijos,
		Amount: 3600, Currency: core.CurrencyLocal, OriginalRate: 36, AmountUSD: 100,
		Category: "Alquiler", Date: "2026-05-03T09:00:00.000Z",
	}
	if err := store.Insert(ctx, usdIncome("i", "2026-05-01T09:00:00.000Z", 1000), fixed); err != nil {
		t.Fatal(err)
	}
	if err := store.SetBudget(ctx, "p1", "Comida", 300); err != nil {
		t.Fatal(err)
	}

	got, err := reports.Budget(ctx, "p1")
	if err != nil {
		t.Fatalf("Budget() error = %v", err)
	}
	if got.Income != 1000 || got.Fixed != 100 || got.RealAvailable != 900 || got.TotalBudget != 300 {
		t.Errorf("Budget() = %+v", got)
	}
}

func TestReportService_Report(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWithRates(testRates)
	exporter := &recordingExporter{}
	reports := NewReportService(store, exporter, DefaultReportConfig())

	if err := store.Insert(ctx,
		usdIncome("a", "2026-01-10T00:00:00.000Z", 100),
		usdIncome("b", "2026-02-10T00:00:00.000Z", 200.456),
	); err != nil {
		t.Fatal(err)
	}

	m, err := reports.Report(ctx, "p1", core.Monthly, "2026-01-01", "2026-03-31")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(m.Periods) != 3 {
		t.Fatalf("periods = %d, want 3", len(m.Periods))
	}
	if m.Net["2026-01"] != 100 || m.Net["2026-03"] != 0 {
		t.Errorf("Net = %v", m.Net)
	}

	ref, err := reports.Export(ctx, "p1", core.Monthly, "2026-01-01", "2026-03-31")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "PyG!A1:C12" {
		t.Errorf("Export() ref = %q", ref)
	}
	wantHeader := []string{"Concepto", "Ene 2026", "Feb 2026", "Mar 2026"}
	if len(exporter.header) != len(wantHeader) {
		t.Fatalf("header = %v, want %v", exporter.header, wantHeader)
	}
	for i := range wantHeader {
		if exporter.header[i] != wantHeader[i] {
			t.Errorf("header[%d] = %q, want %q", i, exporter.header[i], wantHeader[i])
		}
	}
	first := exporter.rows[0]
	if first[0] != "Salario (USD)" || first[2] != 200.46 {
		t.Errorf("first row = %v", first)
	}
}

func TestReportService_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	reports := NewReportService(memory.New(), nil, ReportConfig{})

	if _, err := reports.Dashboard(ctx, "p1", "decade", 1, 2026); !errors.Is(err, core.ErrInvalidView) {
		t.Errorf("Dashboard(bad view) error = %v", err)
	}
	if _, err := reports.Dashboard(ctx, "p1", core.ViewMonth, 13, 2026); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("Dashboard(month 13) error = %v", err)
	}
	if _, err := reports.Report(ctx, "p1", "hourly", "2026-01-01", "2026-01-02"); !errors.Is(err, core.ErrInvalidGranularity) {
		t.Errorf("Report(bad granularity) error = %v", err)
	}
	if _, err := reports.Report(ctx, "p1", core.Daily, "2026-01-01", "01/02/2026"); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("Report(bad date) error = %v", err)
	}
	if _, err := reports.Export(ctx, "p1", core.Daily, "2026-01-01", "2026-01-02"); !errors.Is(err, ErrExportDisabled) {
		t.Errorf("Export() without exporter error = %v", err)
	}
}

func TestReportService_LoadErrorNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")
	store := failingStore{Store: memory.New(), err: boom}
	reports := NewReportService(store, nil, DefaultReportConfig())

	if _, err := reports.Goals(ctx, "p1"); !errors.Is(err, boom) {
		t.Fatalf("Goals() error = %v, want %v", err, boom)
	}
	if _, err := reports.Dashboard(ctx, "p1", core.ViewYear, 1, 2026); !errors.Is(err, boom) {
		t.Errorf("Dashboard() error = %v, want %v", err, boom)
	}
}

func TestReportTable(t *testing.T) {
	store := memory.New()
	reports := NewReportService(store, nil, DefaultReportConfig())
	m, err := reports.Report(context.Background(), "p1", core.Yearly, "2026-01-01", "2026-12-31")
	if err != nil {
		t.Fatal(err)
	}

	header, rows := ReportTable(m)
	if len(header) != 2 || header[1] != "2026" {
		t.Errorf("header = %v", header)
	}
	// No concepts: four segment totals and three derived rows.
	if len(rows) != 7 {
		t.Fatalf("rows = %d, want 7", len(rows))
	}
	if rows[6][0] != "Neto" || rows[6][1] != 0.0 {
		t.Errorf("last row = %v", rows[6])
	}
}

func TestReportService_CachesRegistered(t *testing.T) {
	reports := NewReportService(memory.New(), nil, DefaultReportConfig())
	if got := len(reports.Caches()); got != 4 {
		t.Errorf("Caches() = %d, want 4", got)
	}
}
