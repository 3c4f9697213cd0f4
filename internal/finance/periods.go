package finance

import (
	"fmt"
	"strconv"
	"time"

	"finanzas/internal/core"
)

// maxPeriods bounds the number of columns a single report may have.
const maxPeriods = 1000

var monthLabels = [...]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// BuildPeriods lists the report columns covering [start, end] (YYYY-MM-DD).
// Weekly periods start on the Monday of the week containing start. An empty
// or inverted range yields no periods.
func BuildPeriods(g core.Granularity, start, end string) ([]core.ReportPeriod, error) {
	from, err := time.Parse(core.DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q: %w", start, core.ErrInvalidDate)
	}
	to, err := time.Parse(core.DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("parse end date %q: %w", end, core.ErrInvalidDate)
	}
	if to.Before(from) {
		return nil, nil
	}

	var (
		cur  time.Time
		next func(time.Time) time.Time
		id   func(time.Time) string
		lbl  func(time.Time) string
	)
	switch g {
	case core.Daily:
		cur = from
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		id = func(t time.Time) string { return t.Format(core.DateLayout) }
		lbl = func(t time.Time) string { return fmt.Sprintf("%02d %s", t.Day(), monthLabels[t.Month()-1]) }
	case core.Weekly:
		offset := (int(from.Weekday()) + 6) % 7
		cur = from.AddDate(0, 0, -offset)
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
		id = func(t time.Time) string { return t.Format(core.DateLayout) }
		lbl = func(t time.Time) string { return fmt.Sprintf("Sem %02d %s", t.Day(), monthLabels[t.Month()-1]) }
	case core.Monthly:
		cur = time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
		next = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		id = func(t time.Time) string { return t.Format("2006-01") }
		lbl = func(t time.Time) string { return fmt.Sprintf("%s %d", monthLabels[t.Month()-1], t.Year()) }
	case core.Yearly:
		cur = time.Date(from.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		next = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
		id = func(t time.Time) string { return strconv.Itoa(t.Year()) }
		lbl = id
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidGranularity, g)
	}

	var out []core.ReportPeriod
	for !cur.After(to) {
		if len(out) == maxPeriods {
			return nil, fmt.Errorf("range %s..%s produces more than %d %s periods: %w", start, end, maxPeriods, g, core.ErrInvalidDate)
		}
		out = append(out, core.ReportPeriod{ID: id(cur), Label: lbl(cur)})
		cur = next(cur)
	}
	return out, nil
}
