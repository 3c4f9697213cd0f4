package core

import (
	"errors"
	"math"
	"strings"
)

const (
	CurrencyLocal Currency = "VES"
	CurrencyUSD   Currency = "USD"
	CurrencyEUR   Currency = "EUR"
)

const (
	RateBCV      RateType = "bcv"
	RateParallel RateType = "parallel"
	RateManual   RateType = "manual"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	SegmentIngresos        Segment = "ingresos"
	SegmentAhorro          Segment = "ahorro"
	SegmentGastosFijos     Segment = "gastos_fijos"
	SegmentGastosVariables Segment = "gastos_variables"
)

// LocalCurrencyLabel is the short code shown next to LOCAL amounts.
const LocalCurrencyLabel = "Bs"

type (
	Currency        string
	RateType        string
	TransactionType string
	Segment         string

	// Rates is a snapshot of the exchange rates in effect. BCV and Parallel are
	// LOCAL per USD, EUR is LOCAL per EUR and EURCross is USD per EUR.
	// A rate that is zero, negative or not finite is unavailable.
	Rates struct {
		BCV      float64 `json:"bcv"`
		Parallel float64 `json:"parallel"`
		EUR      float64 `json:"eur"`
		EURCross float64 `json:"eurCross"`
	}

	Transaction struct {
		ID           string          `json:"id"`
		Type         TransactionType `json:"type"`
		Segment      Segment         `json:"segment"`
		Amount       float64         `json:"amount"`
		Currency     Currency        `json:"currency"`
		OriginalRate float64         `json:"originalRate"`
		AmountUSD    float64         `json:"amountUSD"`
		Category     string          `json:"category"`
		Description  string          `json:"description,omitempty"`
		Date         string          `json:"date"`
		ProfileID    string          `json:"profileId"`
		RateType     RateType        `json:"rateType,omitempty"`
		Recurrence   RecurrenceRule  `json:"recurrence,omitempty"`
		CreatedAt    string          `json:"createdAt,omitempty"`

		// ExpandedUntil is the day (YYYY-MM-DD) through which the follow-ons of
		// a recurring base have been generated. Later expansions only add
		// dates after it, so follow-ons deleted by the user stay deleted.
		ExpandedUntil string `json:"expandedUntil,omitempty"`
	}

	// Budgets maps a category to its monthly spending limit.
	Budgets map[string]float64

	// SavingsGoals maps a savings category to its target amount.
	SavingsGoals map[string]float64
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidSegment     = errors.New("invalid segment")
	ErrInvalidRateType    = errors.New("invalid rate type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidRecurrence  = errors.New("invalid recurrence rule")
	ErrTypeMismatch       = errors.New("transaction type does not match segment")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNegativeLimit      = errors.New("limit must not be negative")
	ErrInvalidView        = errors.New("invalid view mode")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrRateUnavailable    = errors.New("exchange rate unavailable")
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyLocal, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// IsHard reports whether c is a hard currency (USD or EUR).
func (c Currency) IsHard() bool {
	return c == CurrencyUSD || c == CurrencyEUR
}

// Label returns the short code used in report rows.
func (c Currency) Label() string {
	switch c {
	case CurrencyLocal:
		return LocalCurrencyLabel
	case CurrencyUSD:
		return "USD"
	case CurrencyEUR:
		return "EUR"
	}
	return string(c)
}

func (r RateType) Valid() bool {
	switch r {
	case RateBCV, RateParallel, RateManual:
		return true
	}
	return false
}

// Usable reports whether a single rate value can be used as a divisor or factor.
func Usable(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 1)
}

// Total sums every budget limit regardless of which categories still exist.
func (b Budgets) Total() float64 {
	var total float64
	for _, v := range b {
		total += v
	}
	return total
}

func (g SavingsGoals) Total() float64 {
	var total float64
	for _, v := range g {
		total += v
	}
	return total
}

func (t Transaction) Validate() error {
	if !t.Segment.Valid() {
		return ErrInvalidSegment
	}
	if !t.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if t.Type != t.Segment.Type() {
		return ErrTypeMismatch
	}
	if !(t.Amount > 0) || math.IsInf(t.Amount, 1) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if _, err := ParseDate(t.Date); err != nil {
		return err
	}
	if t.RateType != "" && !t.RateType.Valid() {
		return ErrInvalidRateType
	}
	if t.Recurrence != "" && !t.Recurrence.Valid() {
		return ErrInvalidRecurrence
	}
	return nil
}

// ValidateLimit checks a budget or goal limit.
func ValidateLimit(category string, limit float64) error {
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	if limit < 0 || math.IsNaN(limit) || math.IsInf(limit, 0) {
		return ErrNegativeLimit
	}
	return nil
}
