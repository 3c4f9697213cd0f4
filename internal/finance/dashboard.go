// Package finance rolls already-converted transactions up into dashboard
// totals, the monthly budget summary, savings-goal progress and the
// period-bucketed P&L report.
//
// Every function is a pure computation over its arguments: inputs are never
// mutated and nothing is cached. A transaction that cannot be placed (bad
// date, unknown segment) is skipped rather than failing the whole result.
package finance

import (
	"time"

	"finanzas/internal/core"
)

// SegmentTotals are the three parallel tallies kept per segment.
type SegmentTotals struct {
	// USD sums amountUSD of every transaction.
	USD float64 `json:"usd"`
	// Local sums the nominal amount of LOCAL transactions only.
	Local float64 `json:"local"`
	// Hard sums amountUSD of USD and EUR transactions only.
	Hard float64 `json:"hard"`
}

type DashboardTotals struct {
	Segments     map[core.Segment]SegmentTotals `json:"segments"`
	Balance      float64                        `json:"balance"`
	BalanceLocal float64                        `json:"balanceLocal"`
	Count        int                            `json:"count"`
}

// InPeriod reports whether date falls in the window selected by view for
// the given month (1-12) and year. ytd keeps months up to and including month.
func InPeriod(date time.Time, view core.ViewMode, month, year int) bool {
	if date.Year() != year {
		return false
	}
	switch view {
	case core.ViewMonth:
		return int(date.Month()) == month
	case core.ViewYTD:
		return int(date.Month()) <= month
	case core.ViewYear:
		return true
	}
	return false
}

// ComputeDashboard aggregates the transactions in the selected period.
func ComputeDashboard(txs []core.Transaction, view core.ViewMode, month, year int, rates core.Rates) DashboardTotals {
	out := DashboardTotals{Segments: make(map[core.Segment]SegmentTotals, 4)}
	for _, s := range core.Segments() {
		out.Segments[s] = SegmentTotals{}
	}

	for _, tx := range txs {
		if !tx.Segment.Valid() {
			continue
		}
		d, err := core.ParseDate(tx.Date)
		if err != nil || !InPeriod(d, view, month, year) {
			continue
		}

		st := out.Segments[tx.Segment]
		st.USD += tx.AmountUSD
		if tx.Currency == core.CurrencyLocal {
			st.Local += tx.Amount
		}
		if tx.Currency.IsHard() {
			st.Hard += tx.AmountUSD
		}
		out.Segments[tx.Segment] = st

		out.Balance += tx.Segment.Sign() * tx.AmountUSD
		out.Count++
	}

	if core.Usable(rates.BCV) {
		out.BalanceLocal = out.Balance * rates.BCV
	}
	return out
}
