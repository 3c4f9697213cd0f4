package currency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"finanzas/internal/core"
)

var liveRates = core.Rates{BCV: 36, Parallel: 40, EUR: 39.6, EURCross: 1.1}

func TestToReferenceUnit(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency core.Currency
		rates    core.Rates
		selector core.RateType
		custom   float64
		want     float64
	}{
		{"usd identity", 123.45, core.CurrencyUSD, liveRates, core.RateBCV, 0, 123.45},
		{"usd identity ignores zero rates", 10, core.CurrencyUSD, core.Rates{}, core.RateParallel, 0, 10},
		{"local via bcv", 3600, core.CurrencyLocal, liveRates, core.RateBCV, 0, 100},
		{"local via parallel", 4000, core.CurrencyLocal, liveRates, core.RateParallel, 0, 100},
		{"local via manual", 500, core.CurrencyLocal, liveRates, core.RateManual, 50, 10},
		{"local manual without custom rate", 500, core.CurrencyLocal, liveRates, core.RateManual, 0, 0},
		{"local zero bcv", 500, core.CurrencyLocal, core.Rates{}, core.RateBCV, 0, 0},
		{"local zero parallel", 500, core.CurrencyLocal, core.Rates{BCV: 36}, core.RateParallel, 0, 0},
		{"eur anchored on bcv", 100, core.CurrencyEUR, liveRates, core.RateParallel, 0, 110},
		{"eur zero eur rate", 100, core.CurrencyEUR, core.Rates{BCV: 36}, core.RateBCV, 0, 0},
		{"eur zero bcv", 100, core.CurrencyEUR, core.Rates{EUR: 39.6, Parallel: 40}, core.RateBCV, 0, 0},
		{"unknown currency", 100, core.Currency("GBP"), liveRates, core.RateBCV, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToReferenceUnit(tt.amount, tt.currency, tt.rates, tt.selector, tt.custom)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestToReferenceUnit_AllZeroRates(t *testing.T) {
	zero := core.Rates{}
	for _, sel := range []core.RateType{core.RateBCV, core.RateParallel, core.RateManual} {
		got := ToReferenceUnit(500, core.CurrencyLocal, zero, sel, 0)
		assert.Equal(t, 0.0, got, "selector %s", sel)
	}
	assert.Equal(t, 0.0, ToReferenceUnit(500, core.CurrencyEUR, zero, core.RateBCV, 0))
}

func TestFinalRate(t *testing.T) {
	assert.Equal(t, 1.0, FinalRate(core.CurrencyUSD, core.Rates{}, core.RateBCV, 0))
	assert.Equal(t, 36.0, FinalRate(core.CurrencyLocal, liveRates, core.RateBCV, 0))
	assert.Equal(t, 40.0, FinalRate(core.CurrencyLocal, liveRates, core.RateParallel, 0))
	assert.Equal(t, 42.0, FinalRate(core.CurrencyLocal, liveRates, core.RateManual, 42))
	assert.InDelta(t, 1.1, FinalRate(core.CurrencyEUR, liveRates, core.RateBCV, 0), 1e-12)
	assert.Equal(t, 0.0, FinalRate(core.CurrencyEUR, core.Rates{EUR: 39.6}, core.RateBCV, 0))
}

func TestFinalRateConsistentWithConversion(t *testing.T) {
	for _, sel := range []core.RateType{core.RateBCV, core.RateParallel, core.RateManual} {
		amount := 1234.5
		r := FinalRate(core.CurrencyLocal, liveRates, sel, 45)
		assert.InDelta(t, amount/r, ToReferenceUnit(amount, core.CurrencyLocal, liveRates, sel, 45), 1e-9)

		r = FinalRate(core.CurrencyEUR, liveRates, sel, 45)
		assert.InDelta(t, amount*r, ToReferenceUnit(amount, core.CurrencyEUR, liveRates, sel, 45), 1e-9)
	}
}

func TestFromReferenceUnitRoundTrip(t *testing.T) {
	for _, c := range []core.Currency{core.CurrencyLocal, core.CurrencyUSD, core.CurrencyEUR} {
		usd := ToReferenceUnit(250, c, liveRates, core.RateBCV, 0)
		assert.InDelta(t, 250, FromReferenceUnit(usd, c, liveRates, core.RateBCV, 0), 1e-9, "currency %s", c)
	}
	assert.Equal(t, 0.0, FromReferenceUnit(10, core.CurrencyLocal, core.Rates{}, core.RateBCV, 0))
}

func TestFreeze(t *testing.T) {
	rate, usd := Freeze(3600, core.CurrencyLocal, liveRates, core.RateBCV, 0)
	assert.Equal(t, 36.0, rate)
	assert.Equal(t, 100.0, usd)

	rate, usd = Freeze(3600, core.CurrencyLocal, core.Rates{}, core.RateBCV, 0)
	assert.Zero(t, rate)
	assert.Zero(t, usd)
}
