package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
)

var rates36 = core.Rates{BCV: 36, Parallel: 40, EUR: 39.6, EURCross: 1.1}

func tx(seg core.Segment, c core.Currency, amount, usd float64, category, date string) core.Transaction {
	return core.Transaction{
		ID:        category + date,
		Type:      seg.Type(),
		Segment:   seg,
		Amount:    amount,
		Currency:  c,
		AmountUSD: usd,
		Category:  category,
		Date:      date,
		ProfileID: "p1",
	}
}

func TestComputeDashboard_SegmentTotals(t *testing.T) {
	txs := []core.Transaction{
		tx(core.SegmentIngresos, core.CurrencyUSD, 1000, 1000, "Salario", "2025-03-01T12:00:00.000Z"),
		tx(core.SegmentIngresos, core.CurrencyLocal, 3600, 100, "Ventas", "2025-03-02T12:00:00.000Z"),
		tx(core.SegmentGastosFijos, core.CurrencyLocal, 7200, 200, "Alquiler", "2025-03-05T12:00:00.000Z"),
		tx(core.SegmentGastosVariables, core.CurrencyEUR, 50, 55, "Comida", "2025-03-10T12:00:00.000Z"),
		tx(core.SegmentAhorro, core.CurrencyUSD, 100, 100, "Retiro", "2025-03-20T12:00:00.000Z"),
	}

	got := ComputeDashboard(txs, core.ViewMonth, 3, 2025, rates36)

	require.Len(t, got.Segments, 4)
	assert.Equal(t, SegmentTotals{USD: 1100, Local: 3600, Hard: 1000}, got.Segments[core.SegmentIngresos])
	assert.Equal(t, SegmentTotals{USD: 200, Local: 7200, Hard: 0}, got.Segments[core.SegmentGastosFijos])
	assert.Equal(t, SegmentTotals{USD: 55, Local: 0, Hard: 55}, got.Segments[core.SegmentGastosVariables])
	assert.Equal(t, SegmentTotals{USD: 100, Local: 0, Hard: 100}, got.Segments[core.SegmentAhorro])
	assert.InDelta(t, 1100-200-55-100, got.Balance, 1e-9)
	assert.InDelta(t, got.Balance*36, got.BalanceLocal, 1e-9)
	assert.Equal(t, 5, got.Count)
}

func TestComputeDashboard_BalanceMatchesSignedSegments(t *testing.T) {
	txs := []core.Transaction{
		tx(core.SegmentIngresos, core.CurrencyUSD, 10, 10, "a", "2025-01-01"),
		tx(core.SegmentAhorro, core.CurrencyUSD, 3, 3, "b", "2025-02-01"),
		tx(core.SegmentGastosFijos, core.CurrencyUSD, 2, 2, "c", "2025-03-01"),
		tx(core.SegmentGastosVariables, core.CurrencyUSD, 1, 1, "d", "2025-04-01"),
	}
	for _, view := range []core.ViewMode{core.ViewMonth, core.ViewYTD, core.ViewYear} {
		got := ComputeDashboard(txs, view, 3, 2025, rates36)
		var signed float64
		for seg, st := range got.Segments {
			signed += seg.Sign() * st.USD
		}
		assert.InDelta(t, signed, got.Balance, 1e-9, "view %s", view)
	}
}

func TestComputeDashboard_ViewModes(t *testing.T) {
	txs := []core.Transaction{
		tx(core.SegmentIngresos, core.CurrencyUSD, 1, 1, "a", "2025-01-15"),
		tx(core.SegmentIngresos, core.CurrencyUSD, 10, 10, "a", "2025-03-15"),
		tx(core.SegmentIngresos, core.CurrencyUSD, 100, 100, "a", "2025-04-15"),
		tx(core.SegmentIngresos, core.CurrencyUSD, 1000, 1000, "a", "2024-03-15"),
	}
	tests := []struct {
		view core.ViewMode
		want float64
	}{
		{core.ViewMonth, 10},
		{core.ViewYTD, 11},
		{core.ViewYear, 111},
		{core.ViewMode("decade"), 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			got := ComputeDashboard(txs, tt.view, 3, 2025, rates36)
			assert.Equal(t, tt.want, got.Segments[core.SegmentIngresos].USD)
		})
	}
}

func TestComputeDashboard_EmptyAndInvalid(t *testing.T) {
	got := ComputeDashboard(nil, core.ViewMonth, 3, 2025, core.Rates{})
	require.Len(t, got.Segments, 4)
	for _, s := range core.Segments() {
		assert.Equal(t, SegmentTotals{}, got.Segments[s])
	}
	assert.Zero(t, got.BalanceLocal)

	bad := []core.Transaction{
		tx(core.SegmentIngresos, core.CurrencyUSD, 5, 5, "a", ""),
		tx(core.SegmentIngresos, core.CurrencyUSD, 5, 5, "a", "garbage"),
		tx(core.Segment("otros"), core.CurrencyUSD, 5, 5, "a", "2025-03-01"),
	}
	got = ComputeDashboard(bad, core.ViewMonth, 3, 2025, rates36)
	assert.Zero(t, got.Balance)
	assert.Zero(t, got.Count)
}

func TestComputeBudget_Scenario(t *testing.T) {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx(core.SegmentIngresos, core.CurrencyUSD, 1000, 1000, "Salario", "2025-05-01T09:00:00.000Z"),
		tx(core.SegmentGastosFijos, core.CurrencyLocal, 3600, 100, "Alquiler", "2025-05-03T09:00:00.000Z"),
	}

	got := ComputeBudget(txs, core.Budgets{}, rates36, now)

	assert.Equal(t, 1000.0, got.Income)
	assert.Equal(t, 100.0, got.Fixed)
	assert.Equal(t, 0.0, got.Savings)
	assert.Equal(t, 900.0, got.RealAvailable)
	assert.Equal(t, 900.0*36, got.RealAvailableLocal)
	assert.Equal(t, 0.0, got.Progress)
}

func TestComputeBudget_ProgressAndSpending(t *testing.T) {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx(core.SegmentGastosVariables, core.CurrencyUSD, 150, 150, "Comida", "2025-05-02"),
		tx(core.SegmentGastosVariables, core.CurrencyUSD, 100, 100, "Comida", "2025-05-03"),
		tx(core.SegmentGastosVariables, core.CurrencyUSD, 50, 50, "Salidas", "2025-05-04"),
		tx(core.SegmentGastosVariables, core.CurrencyUSD, 999, 999, "Comida", "2025-04-30"),
		tx(core.SegmentAhorro, core.CurrencyUSD, 20, 20, "Retiro", "2025-05-05"),
	}
	budgets := core.Budgets{"Comida": 200, "Ropa": 50}

	got := ComputeBudget(txs, budgets, rates36, now)

	assert.Equal(t, 300.0, got.VariableTotal)
	assert.Equal(t, map[string]float64{"Comida": 250, "Salidas": 50}, got.Spending)
	assert.Equal(t, 250.0, got.TotalBudget)
	assert.InDelta(t, 120.0, got.Progress, 1e-9, "progress is not clamped")
	assert.Equal(t, -20.0, got.RealAvailable)

	require.Len(t, got.Categories, 2)
	assert.Equal(t, CategoryProgress{Category: "Comida", Spent: 250, Limit: 200, Percent: 125, Over: true}, got.Categories[0])
	assert.Equal(t, CategoryProgress{Category: "Ropa", Spent: 0, Limit: 50, Percent: 0, Over: false}, got.Categories[1])
}

func TestComputeBudget_ZeroBudgetMeansZeroProgress(t *testing.T) {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	txs := []core.Transaction{tx(core.SegmentGastosVariables, core.CurrencyUSD, 10, 10, "Comida", "2025-05-02")}
	for _, b := range []core.Budgets{nil, {}, {"Comida": 0}} {
		got := ComputeBudget(txs, b, core.Rates{}, now)
		assert.Equal(t, 0.0, got.Progress)
		assert.Equal(t, 10.0, got.VariableTotal)
	}
}

func TestComputeGoals(t *testing.T) {
	txs := []core.Transaction{
		tx(core.SegmentAhorro, core.CurrencyUSD, 300, 300, "Vacaciones", "2024-01-01"),
		tx(core.SegmentAhorro, core.CurrencyUSD, 250, 250, "Vacaciones", "2025-01-01"),
		tx(core.SegmentGastosVariables, core.CurrencyUSD, 100, 100, "Vacaciones", "2025-01-01"),
		tx(core.SegmentAhorro, core.CurrencyUSD, 10, 10, "Retiro", "2025-01-01"),
	}
	got := ComputeGoals(txs, core.SavingsGoals{"Vacaciones": 400, "Retiro": 0, "Auto": 1000})

	require.Len(t, got, 3)
	assert.Equal(t, GoalProgress{Category: "Auto", Saved: 0, Target: 1000}, got[0])
	assert.Equal(t, GoalProgress{Category: "Retiro", Saved: 10, Target: 0, Percent: 0}, got[1])
	assert.Equal(t, GoalProgress{Category: "Vacaciones", Saved: 550, Target: 400, Percent: 137.5, Reached: true}, got[2])
}
