package finance

import (
	"sort"
	"time"

	"finanzas/internal/core"
)

// CategoryProgress is the utilization of a single budget entry.
type CategoryProgress struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
	Limit    float64 `json:"limit"`
	Percent  float64 `json:"percent"`
	Over     bool    `json:"over"`
}

type BudgetSummary struct {
	VariableTotal      float64            `json:"variableTotal"`
	Income             float64            `json:"income"`
	Savings            float64            `json:"savings"`
	Fixed              float64            `json:"fixed"`
	RealAvailable      float64            `json:"realAvailable"`
	RealAvailableLocal float64            `json:"realAvailableLocal"`
	TotalBudget        float64            `json:"totalBudget"`
	Progress           float64            `json:"progress"`
	Spending           map[string]float64 `json:"spending"`
	Categories         []CategoryProgress `json:"categories"`
}

// ComputeBudget summarizes the calendar month containing now. It always
// looks at the real current month, independent of any period the caller is
// browsing. Progress is not clamped; it exceeds 100 when over budget.
func ComputeBudget(txs []core.Transaction, budgets core.Budgets, rates core.Rates, now time.Time) BudgetSummary {
	out := BudgetSummary{Spending: map[string]float64{}}

	for _, tx := range txs {
		d, err := core.ParseDate(tx.Date)
		if err != nil || !InPeriod(d, core.ViewMonth, int(now.Month()), now.Year()) {
			continue
		}
		switch tx.Segment {
		case core.SegmentIngresos:
			out.Income += tx.AmountUSD
		case core.SegmentAhorro:
			out.Savings += tx.AmountUSD
		case core.SegmentGastosFijos:
			out.Fixed += tx.AmountUSD
		case core.SegmentGastosVariables:
			out.VariableTotal += tx.AmountUSD
			out.Spending[tx.Category] += tx.AmountUSD
		}
	}

	out.RealAvailable = (out.Income - out.Savings) - out.Fixed
	if core.Usable(rates.BCV) {
		out.RealAvailableLocal = out.RealAvailable * rates.BCV
	}

	out.TotalBudget = budgets.Total()
	if out.TotalBudget > 0 {
		out.Progress = out.VariableTotal / out.TotalBudget * 100
	}

	out.Categories = make([]CategoryProgress, 0, len(budgets))
	for cat, limit := range budgets {
		cp := CategoryProgress{Category: cat, Spent: out.Spending[cat], Limit: limit}
		if limit > 0 {
			cp.Percent = cp.Spent / limit * 100
		}
		cp.Over = cp.Spent > limit
		out.Categories = append(out.Categories, cp)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		return out.Categories[i].Category < out.Categories[j].Category
	})
	return out
}
