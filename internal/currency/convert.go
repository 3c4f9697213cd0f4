// Package currency converts amounts between LOCAL, USD and EUR using a rate
// snapshot and a rate-selection policy.
//
// USD is the reference unit. A rate that is not usable (see core.Usable)
// makes the conversion impossible and the functions return 0 instead of
// dividing by it. Nothing here returns NaN, Inf or an error.
package currency

import "finanzas/internal/core"

// SelectRate returns the LOCAL-per-USD rate chosen by selector, or 0 when
// that rate is unavailable.
func SelectRate(rates core.Rates, selector core.RateType, customRate float64) float64 {
	var r float64
	switch selector {
	case core.RateParallel:
		r = rates.Parallel
	case core.RateManual:
		r = customRate
	default:
		r = rates.BCV
	}
	if !core.Usable(r) {
		return 0
	}
	return r
}

// ToReferenceUnit converts amount in currency to USD.
//
// EUR is always anchored through the official rate: EUR -> LOCAL via
// rates.EUR, then LOCAL -> USD via rates.BCV. LOCAL uses the rate chosen by
// selector (customRate for manual).
func ToReferenceUnit(amount float64, c core.Currency, rates core.Rates, selector core.RateType, customRate float64) float64 {
	switch c {
	case core.CurrencyUSD:
		return amount
	case core.CurrencyEUR:
		if !core.Usable(rates.EUR) || !core.Usable(rates.BCV) {
			return 0
		}
		return amount * rates.EUR / rates.BCV
	case core.CurrencyLocal:
		r := SelectRate(rates, selector, customRate)
		if r == 0 {
			return 0
		}
		return amount / r
	}
	return 0
}

// FinalRate returns the rate ToReferenceUnit applies: 1 for USD, the
// selected LOCAL rate for LOCAL (divisor) and the EUR/BCV cross rate for
// EUR (factor). Zero means the conversion is not possible.
func FinalRate(c core.Currency, rates core.Rates, selector core.RateType, customRate float64) float64 {
	switch c {
	case core.CurrencyUSD:
		return 1
	case core.CurrencyEUR:
		if !core.Usable(rates.EUR) || !core.Usable(rates.BCV) {
			return 0
		}
		return rates.EUR / rates.BCV
	case core.CurrencyLocal:
		return SelectRate(rates, selector, customRate)
	}
	return 0
}

// FromReferenceUnit converts a USD amount back to currency.
func FromReferenceUnit(amountUSD float64, c core.Currency, rates core.Rates, selector core.RateType, customRate float64) float64 {
	r := FinalRate(c, rates, selector, customRate)
	if r == 0 {
		return 0
	}
	switch c {
	case core.CurrencyLocal:
		return amountUSD * r
	case core.CurrencyEUR:
		return amountUSD / r
	}
	return amountUSD
}

// Freeze computes the values stored on a transaction at entry time.
func Freeze(amount float64, c core.Currency, rates core.Rates, selector core.RateType, customRate float64) (originalRate, amountUSD float64) {
	return FinalRate(c, rates, selector, customRate), ToReferenceUnit(amount, c, rates, selector, customRate)
}
