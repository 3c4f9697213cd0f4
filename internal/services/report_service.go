package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/finance"
	applog "finanzas/internal/log"
	"finanzas/internal/ports"
)

// ErrExportDisabled is returned by Export when no exporter is configured.
var ErrExportDisabled = errors.New("report export is not configured")

type ReportConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		CacheSize: 256,
		CacheTTL:  5 * time.Minute,
	}
}

// ReportService loads a profile's data and runs the aggregators over it.
// Results are memoized per data version, which combines the store's change
// counter with a local counter bumped by Invalidate. Any committed write,
// including one made by another process such as the recurrence worker,
// moves the store counter, so the next call after it recomputes.
type ReportService struct {
	txs      ports.TransactionStore
	settings ports.SettingsStore
	rates    ports.RateStore
	versions ports.Versioned
	exporter ports.ReportExporter
	now      func() time.Time

	version atomic.Uint64

	dashboardCache *cache.LRUCache[finance.DashboardTotals]
	budgetCache    *cache.LRUCache[finance.BudgetSummary]
	reportCache    *cache.LRUCache[finance.ReportMatrix]
	goalsCache     *cache.LRUCache[[]finance.GoalProgress]

	dashboards *cache.Memo[finance.DashboardTotals]
	budgets    *cache.Memo[finance.BudgetSummary]
	reports    *cache.Memo[finance.ReportMatrix]
	goals      *cache.Memo[[]finance.GoalProgress]
}

func NewReportService(store ports.Store, exporter ports.ReportExporter, cfg ReportConfig) *ReportService {
	if cfg.CacheSize < 1 {
		cfg.CacheSize = DefaultReportConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultReportConfig().CacheTTL
	}

	s := &ReportService{
		txs:            store,
		settings:       store,
		rates:          store,
		versions:       store,
		exporter:       exporter,
		now:            time.Now,
		dashboardCache: cache.NewLRUCache[finance.DashboardTotals](cfg.CacheSize, cfg.CacheTTL),
		budgetCache:    cache.NewLRUCache[finance.BudgetSummary](cfg.CacheSize, cfg.CacheTTL),
		reportCache:    cache.NewLRUCache[finance.ReportMatrix](cfg.CacheSize, cfg.CacheTTL),
		goalsCache:     cache.NewLRUCache[[]finance.GoalProgress](cfg.CacheSize, cfg.CacheTTL),
	}
	s.dashboards = cache.NewMemo[finance.DashboardTotals](s.dashboardCache)
	s.budgets = cache.NewMemo[finance.BudgetSummary](s.budgetCache)
	s.reports = cache.NewMemo[finance.ReportMatrix](s.reportCache)
	s.goals = cache.NewMemo[[]finance.GoalProgress](s.goalsCache)
	return s
}

// Caches returns the result caches so a cache.Manager can sweep them.
func (s *ReportService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.dashboardCache, s.budgetCache, s.reportCache, s.goalsCache}
}

// Invalidate bumps the local data version. Entries computed for older
// versions are never read again and age out of the caches.
func (s *ReportService) Invalidate() {
	s.version.Add(1)
}

// Version is the local data version.
func (s *ReportService) Version() uint64 {
	return s.version.Load()
}

func (s *ReportService) key(ctx context.Context, kind string, parts ...any) (string, error) {
	stored, err := s.versions.DataVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("read data version: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d|%s", stored, s.version.Load(), kind)
	for _, p := range parts {
		fmt.Fprintf(&b, "|%v", p)
	}
	return b.String(), nil
}

type inputs struct {
	txs     []core.Transaction
	budgets core.Budgets
	goals   core.SavingsGoals
	rates   core.Rates
}

type need uint8

const (
	needBudgets need = 1 << iota
	needGoals
)

// load fetches the transactions and rates of a profile, plus budgets and
// goals when asked, concurrently.
func (s *ReportService) load(ctx context.Context, profileID string, n need) (inputs, error) {
	var in inputs
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := s.txs.List(ctx, profileID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		in.txs = txs
		return nil
	})
	g.Go(func() error {
		r, err := s.rates.LatestRates(ctx)
		if err != nil {
			return fmt.Errorf("load rates: %w", err)
		}
		in.rates = r
		return nil
	})
	if n&needBudgets != 0 {
		g.Go(func() error {
			b, err := s.settings.Budgets(ctx, profileID)
			if err != nil {
				return fmt.Errorf("load budgets: %w", err)
			}
			in.budgets = b
			return nil
		})
	}
	if n&needGoals != 0 {
		g.Go(func() error {
			goals, err := s.settings.Goals(ctx, profileID)
			if err != nil {
				return fmt.Errorf("load goals: %w", err)
			}
			in.goals = goals
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return inputs{}, err
	}
	return in, nil
}

// Dashboard returns the segment totals for the selected view.
func (s *ReportService) Dashboard(ctx context.Context, profileID string, view core.ViewMode, month, year int) (finance.DashboardTotals, error) {
	if !view.Valid() {
		return finance.DashboardTotals{}, fmt.Errorf("%w: %q", core.ErrInvalidView, view)
	}
	if month < 1 || month > 12 {
		return finance.DashboardTotals{}, fmt.Errorf("month %d: %w", month, core.ErrInvalidDate)
	}

	key, err := s.key(ctx, "dashboard", profileID, view, month, year)
	if err != nil {
		return finance.DashboardTotals{}, err
	}
	return s.dashboards.Do(ctx, key, func(ctx context.Context) (finance.DashboardTotals, error) {
		in, err := s.load(ctx, profileID, 0)
		if err != nil {
			return finance.DashboardTotals{}, err
		}
		return finance.ComputeDashboard(in.txs, view, month, year, in.rates), nil
	})
}

// Budget summarizes the current calendar month against the stored limits.
func (s *ReportService) Budget(ctx context.Context, profileID string) (finance.BudgetSummary, error) {
	now := s.now()
	key, err := s.key(ctx, "budget", profileID, now.Format("2006-01"))
	if err != nil {
		return finance.BudgetSummary{}, err
	}
	return s.budgets.Do(ctx, key, func(ctx context.Context) (finance.BudgetSummary, error) {
		in, err := s.load(ctx, profileID, needBudgets)
		if err != nil {
			return finance.BudgetSummary{}, err
		}
		return finance.ComputeBudget(in.txs, in.budgets, in.rates, now), nil
	})
}

func (s *ReportService) Goals(ctx context.Context, profileID string) ([]finance.GoalProgress, error) {
	key, err := s.key(ctx, "goals", profileID)
	if err != nil {
		return nil, err
	}
	return s.goals.Do(ctx, key, func(ctx context.Context) ([]finance.GoalProgress, error) {
		in, err := s.load(ctx, profileID, needGoals)
		if err != nil {
			return nil, err
		}
		return finance.ComputeGoals(in.txs, in.goals), nil
	})
}

// Report builds the P&L matrix for [start, end] (YYYY-MM-DD) at the given
// granularity.
func (s *ReportService) Report(ctx context.Context, profileID string, g core.Granularity, start, end string) (finance.ReportMatrix, error) {
	if !g.Valid() {
		return finance.ReportMatrix{}, fmt.Errorf("%w: %q", core.ErrInvalidGranularity, g)
	}
	periods, err := finance.BuildPeriods(g, start, end)
	if err != nil {
		return finance.ReportMatrix{}, fmt.Errorf("build periods: %w", err)
	}

	key, err := s.key(ctx, "report", profileID, g, start, end)
	if err != nil {
		return finance.ReportMatrix{}, err
	}
	return s.reports.Do(ctx, key, func(ctx context.Context) (finance.ReportMatrix, error) {
		in, err := s.load(ctx, profileID, 0)
		if err != nil {
			return finance.ReportMatrix{}, err
		}
		m := finance.ComputePnLReport(in.txs, periods, g, start, end, in.rates)
		slog.DebugContext(ctx, "P&L report computed",
			applog.FieldProfileID, profileID,
			applog.FieldGranularity, string(g),
			"periods", len(periods),
			applog.FieldCount, len(in.txs))
		return m, nil
	})
}

// Export builds the report and writes it through the configured exporter,
// returning the exporter's reference to the written range.
func (s *ReportService) Export(ctx context.Context, profileID string, g core.Granularity, start, end string) (string, error) {
	if s.exporter == nil {
		return "", ErrExportDisabled
	}
	m, err := s.Report(ctx, profileID, g, start, end)
	if err != nil {
		return "", err
	}

	header, rows := ReportTable(m)
	title := fmt.Sprintf("P&L %s %s..%s", g, start, end)
	ref, err := s.exporter.ExportReport(ctx, title, header, rows)
	if err != nil {
		return "", fmt.Errorf("export report: %w", err)
	}

	slog.InfoContext(ctx, "Report exported",
		applog.FieldProfileID, profileID,
		applog.FieldGranularity, string(g),
		"ref", ref)
	return ref, nil
}

// ReportTable flattens a matrix into a header and rows of cells rounded to
// two decimals. The first column is the row label.
func ReportTable(m finance.ReportMatrix) ([]string, [][]any) {
	header := make([]string, 0, len(m.Periods)+1)
	header = append(header, "Concepto")
	for _, p := range m.Periods {
		header = append(header, p.Label)
	}

	src := m.Rows()
	rows := make([][]any, 0, len(src))
	for _, r := range src {
		row := make([]any, 0, len(r.Values)+1)
		row = append(row, r.Label)
		for _, v := range r.Values {
			row = append(row, core.Round2(v))
		}
		rows = append(rows, row)
	}
	return header, rows
}
