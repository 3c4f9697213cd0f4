package core

import (
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	// ISOLayout matches the millisecond UTC instants stored on transactions.
	ISOLayout = "2006-01-02T15:04:05.000Z07:00"
)

const (
	ViewMonth ViewMode = "month"
	ViewYTD   ViewMode = "ytd"
	ViewYear  ViewMode = "year"
)

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

const (
	RecurNone         RecurrenceRule = "none"
	RecurWeekly       RecurrenceRule = "weekly"
	RecurMonthly      RecurrenceRule = "monthly"
	RecurQuarterly    RecurrenceRule = "quarterly"
	RecurQuadrimester RecurrenceRule = "quadrimester"
	RecurBiannual     RecurrenceRule = "biannual"
)

type (
	ViewMode       string
	Granularity    string
	RecurrenceRule string

	// ReportPeriod is one column of the P&L report. ID is the bucket key
	// (YYYY-MM-DD, YYYY-MM or YYYY; the week start for weekly reports).
	ReportPeriod struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
)

func (v ViewMode) Valid() bool {
	switch v {
	case ViewMonth, ViewYTD, ViewYear:
		return true
	}
	return false
}

func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (r RecurrenceRule) Valid() bool {
	switch r {
	case RecurNone, RecurWeekly, RecurMonthly, RecurQuarterly, RecurQuadrimester, RecurBiannual:
		return true
	}
	return false
}

// ParseDate parses an ISO instant or a bare YYYY-MM-DD date. Instants keep
// the offset they were written with so the calendar date is the one stored.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if len(s) == len(DateLayout) {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, ErrInvalidDate
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DatePart returns the YYYY-MM-DD prefix of an ISO string, or "" when the
// prefix is not a real calendar date.
func DatePart(iso string) string {
	if len(iso) < len(DateLayout) {
		return ""
	}
	d := iso[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, d); err != nil {
		return ""
	}
	return d
}

// FormatISO renders t as a millisecond UTC instant.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
