package finance

import (
	"sort"
	"time"

	"finanzas/internal/core"
)

// SegmentReport holds one segment of the P&L matrix. Concepts is keyed by
// concept ("{category} ({currency})") then period id; Total by period id.
type SegmentReport struct {
	Concepts map[string]map[string]float64 `json:"concepts"`
	Total    map[string]float64            `json:"total"`
}

type ReportMatrix struct {
	Periods           []core.ReportPeriod             `json:"periods"`
	Segments          map[core.Segment]*SegmentReport `json:"segments"`
	Net               map[string]float64              `json:"net"`
	Available         map[string]float64              `json:"available"`
	FlexibleAvailable map[string]float64              `json:"flexibleAvailable"`
}

// ConceptKey names a report row. The same category in two currencies gives
// two rows.
func ConceptKey(category string, c core.Currency) string {
	return category + " (" + c.Label() + ")"
}

// Contribution is the amount a transaction adds to the report. LOCAL
// savings are re-valued at the live BCV rate to track devaluation; every
// other transaction keeps the amountUSD frozen at entry time.
func Contribution(tx core.Transaction, rates core.Rates) float64 {
	if tx.Segment == core.SegmentAhorro && tx.Currency == core.CurrencyLocal && core.Usable(rates.BCV) {
		return tx.Amount / rates.BCV
	}
	return tx.AmountUSD
}

func zeroed(periods []core.ReportPeriod) map[string]float64 {
	m := make(map[string]float64, len(periods))
	for _, p := range periods {
		m[p.ID] = 0
	}
	return m
}

type weekWindow struct {
	id, end string
}

// ComputePnLReport buckets the transactions dated within [startDate, endDate]
// (inclusive, YYYY-MM-DD) into periods according to granularity. Every period
// id is present in every map of the result, even with no transactions.
func ComputePnLReport(txs []core.Transaction, periods []core.ReportPeriod, granularity core.Granularity, startDate, endDate string, rates core.Rates) ReportMatrix {
	out := ReportMatrix{
		Periods:           append([]core.ReportPeriod(nil), periods...),
		Segments:          make(map[core.Segment]*SegmentReport, 4),
		Net:               zeroed(periods),
		Available:         zeroed(periods),
		FlexibleAvailable: zeroed(periods),
	}
	for _, s := range core.Segments() {
		out.Segments[s] = &SegmentReport{
			Concepts: map[string]map[string]float64{},
			Total:    zeroed(periods),
		}
	}

	var weeks []weekWindow
	if granularity == core.Weekly {
		weeks = make([]weekWindow, 0, len(periods))
		for _, p := range periods {
			start, err := time.Parse(core.DateLayout, p.ID)
			if err != nil {
				continue
			}
			weeks = append(weeks, weekWindow{id: p.ID, end: start.AddDate(0, 0, 7).Format(core.DateLayout)})
		}
	}

	for _, tx := range txs {
		seg, ok := out.Segments[tx.Segment]
		if !ok {
			continue
		}
		d := core.DatePart(tx.Date)
		if d == "" || d < startDate || d > endDate {
			continue
		}

		bucket := bucketID(d, granularity, weeks)
		if _, declared := out.Net[bucket]; bucket == "" || !declared {
			continue
		}

		amount := Contribution(tx, rates)
		key := ConceptKey(tx.Category, tx.Currency)
		row, ok := seg.Concepts[key]
		if !ok {
			row = zeroed(periods)
			seg.Concepts[key] = row
		}
		row[bucket] += amount
		seg.Total[bucket] += amount
		out.Net[bucket] += tx.Segment.Sign() * amount
	}

	income := out.Segments[core.SegmentIngresos].Total
	savings := out.Segments[core.SegmentAhorro].Total
	fixed := out.Segments[core.SegmentGastosFijos].Total
	for _, p := range periods {
		out.Available[p.ID] = income[p.ID] - savings[p.ID]
		out.FlexibleAvailable[p.ID] = income[p.ID] - savings[p.ID] - fixed[p.ID]
	}
	return out
}

func bucketID(date string, g core.Granularity, weeks []weekWindow) string {
	switch g {
	case core.Daily:
		return date
	case core.Monthly:
		return date[:7]
	case core.Yearly:
		return date[:4]
	case core.Weekly:
		for _, w := range weeks {
			if date >= w.id && date < w.end {
				return w.id
			}
		}
	}
	return ""
}

// ConceptKeys returns the concept rows of a segment in sorted order.
func (m ReportMatrix) ConceptKeys(s core.Segment) []string {
	seg, ok := m.Segments[s]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(seg.Concepts))
	for k := range seg.Concepts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RowKind tells apart the lines of a flattened report.
type RowKind string

const (
	RowConcept RowKind = "concept"
	RowTotal   RowKind = "total"
	RowDerived RowKind = "derived"
)

type ReportRow struct {
	Kind    RowKind      `json:"kind"`
	Segment core.Segment `json:"segment,omitempty"`
	Label   string       `json:"label"`
	Values  []float64    `json:"values"`
}

// Rows flattens the matrix in display order: for each segment its concepts
// then its total, followed by the available, flexible available and net rows.
// Values follow the order of Periods.
func (m ReportMatrix) Rows() []ReportRow {
	values := func(src map[string]float64) []float64 {
		v := make([]float64, len(m.Periods))
		for i, p := range m.Periods {
			v[i] = src[p.ID]
		}
		return v
	}

	var rows []ReportRow
	for _, s := range core.Segments() {
		seg, ok := m.Segments[s]
		if !ok {
			continue
		}
		for _, k := range m.ConceptKeys(s) {
			rows = append(rows, ReportRow{Kind: RowConcept, Segment: s, Label: k, Values: values(seg.Concepts[k])})
		}
		rows = append(rows, ReportRow{Kind: RowTotal, Segment: s, Label: "Total " + s.Label(), Values: values(seg.Total)})
	}
	rows = append(rows,
		ReportRow{Kind: RowDerived, Label: "Disponible", Values: values(m.Available)},
		ReportRow{Kind: RowDerived, Label: "Disponible Flexible", Values: values(m.FlexibleAvailable)},
		ReportRow{Kind: RowDerived, Label: "Neto", Values: values(m.Net)},
	)
	return rows
}
