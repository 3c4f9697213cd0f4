// Package recurrence generates the follow-on dates of a recurring transaction.
//
// Each rule has its own Stepper that advances a date by one period. The
// generator applies the stepper repeatedly from the base date, taken in
// UTC, until the result passes December 31 of the current year in UTC.
package recurrence

import (
	"fmt"
	"time"

	"finanzas/internal/core"
)

// MaxOccurrences caps the number of iterations regardless of the bound.
const MaxOccurrences = 370

// Stepper advances a date by one recurrence period.
type Stepper interface {
	Next(t time.Time) time.Time
}

// DayStepper advances by a fixed number of days.
type DayStepper struct{ Days int }

func (s DayStepper) Next(t time.Time) time.Time { return t.AddDate(0, 0, s.Days) }

// MonthStepper advances by a number of calendar months. Days that do not
// exist in the target month overflow into the next one (Jan 31 + 1 month is
// early March), and the overflowed date is the base of the next step.
type MonthStepper struct{ Months int }

func (s MonthStepper) Next(t time.Time) time.Time { return t.AddDate(0, s.Months, 0) }

var steppers = map[core.RecurrenceRule]Stepper{
	core.RecurWeekly:       DayStepper{Days: 7},
	core.RecurMonthly:      MonthStepper{Months: 1},
	core.RecurQuarterly:    MonthStepper{Months: 3},
	core.RecurQuadrimester: MonthStepper{Months: 4},
	core.RecurBiannual:     MonthStepper{Months: 6},
}

// StepperFor returns the stepper for rule. RecurNone and unknown rules have
// no stepper.
func StepperFor(rule core.RecurrenceRule) (Stepper, error) {
	s, ok := steppers[rule]
	if !ok {
		return nil, fmt.Errorf("no stepper for recurrence rule: %q", rule)
	}
	return s, nil
}

// Generate returns the occurrences following base, in ascending order, up to
// and including December 31 (UTC) of now's year. The bound is anchored to now
// and not to base: a base in another year is still cut at the current year
// end. base is stepped in UTC, so every occurrence is in UTC and its calendar
// date is the one written out by core.FormatISO. base itself is never part of
// the result.
func Generate(base time.Time, rule core.RecurrenceRule, now time.Time) []time.Time {
	step, err := StepperFor(rule)
	if err != nil {
		return nil
	}
	lastYear := now.UTC().Year()

	var out []time.Time
	cur := base.UTC()
	for i := 0; i < MaxOccurrences; i++ {
		cur = step.Next(cur)
		if cur.Year() > lastYear {
			break
		}
		out = append(out, cur)
	}
	return out
}

// GenerateISO is Generate over ISO strings. An unparseable base yields an
// empty sequence.
func GenerateISO(baseISO string, rule core.RecurrenceRule, now time.Time) []string {
	base, err := core.ParseDate(baseISO)
	if err != nil {
		return nil
	}
	dates := Generate(base, rule, now)
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, core.FormatISO(d))
	}
	return out
}
