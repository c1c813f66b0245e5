// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconfx converts amounts to the reporting currency.
//
// A rate is the number of foreign currency units per one unit of the
// reporting currency, the way the ECB and the Bank of Slovenia publish them,
// so an amount is converted by dividing it by the rate.
package ibreconfx

import (
	"fmt"
	"sort"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// MaxFallbackDays is how many earlier days are tried when a date has no rate.
const MaxFallbackDays = 9

// RateTable maps dates to currency codes to rates.
type RateTable struct {
	rates map[xtime.Date]map[string]decimal.Decimal
}

// NewRateTable returns an empty RateTable.
func NewRateTable() *RateTable {
	return &RateTable{
		rates: make(map[xtime.Date]map[string]decimal.Decimal),
	}
}

// Set stores a rate. Rates must be positive.
func (r *RateTable) Set(date xtime.Date, currency string, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("invalid %s rate %s on %s", currency, rate, date)
	}
	byCurrency, ok := r.rates[date]
	if !ok {
		byCurrency = make(map[string]decimal.Decimal)
		r.rates[date] = byCurrency
	}
	byCurrency[currency] = rate
	return nil
}

// Lookup returns the rate published on exactly the given date.
func (r *RateTable) Lookup(date xtime.Date, currency string) (decimal.Decimal, bool) {
	rate, ok := r.rates[date][currency]
	return rate, ok
}

// Currencies returns the sorted currency codes present in the table.
func (r *RateTable) Currencies() []string {
	seen := make(map[string]struct{})
	for _, byCurrency := range r.rates {
		for currency := range byCurrency {
			seen[currency] = struct{}{}
		}
	}
	currencies := make([]string, 0, len(seen))
	for currency := range seen {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies
}

// Len returns the number of dates in the table.
func (r *RateTable) Len() int {
	return len(r.rates)
}

// Quote is a resolved rate.
type Quote struct {
	// Currency is the canonical currency code the rate was looked up for.
	Currency string
	Rate     decimal.Decimal
	// Date is the date the rate was published, which is earlier than the
	// requested date when a fallback was used.
	Date xtime.Date
}

// Converter resolves rates with the backward fallback policy.
type Converter struct {
	reportingCurrency string
	table             *RateTable
	aliases           map[string]string
	diagnostics       *ibrecondiag.Diagnostics
}

// NewConverter returns a new Converter.
//
// Aliases map currency codes to the code whose rate they use, such as the
// offshore CNH to CNY. Substituted dates are recorded as warnings on diagnostics.
func NewConverter(
	reportingCurrency string,
	table *RateTable,
	aliases map[string]string,
	diagnostics *ibrecondiag.Diagnostics,
) *Converter {
	return &Converter{
		reportingCurrency: reportingCurrency,
		table:             table,
		aliases:           aliases,
		diagnostics:       diagnostics,
	}
}

// ReportingCurrency returns the reporting currency code.
func (c *Converter) ReportingCurrency() string {
	return c.reportingCurrency
}

// Resolve returns the rate for currency on date.
//
// The reporting currency always has rate 1. Otherwise the date itself is
// tried first, then each of the MaxFallbackDays previous days. Running out
// of days is a *ibrecondiag.ReconciliationFailure; a rate is never assumed.
func (c *Converter) Resolve(date xtime.Date, currency string) (Quote, error) {
	if currency == c.reportingCurrency {
		return Quote{Currency: currency, Rate: decimal.NewFromInt(1), Date: date}, nil
	}
	if canonical, ok := c.aliases[currency]; ok {
		currency = canonical
	}
	if currency == c.reportingCurrency {
		return Quote{Currency: currency, Rate: decimal.NewFromInt(1), Date: date}, nil
	}
	if rate, ok := c.table.Lookup(date, currency); ok {
		return Quote{Currency: currency, Rate: rate, Date: date}, nil
	}
	for i := 1; i <= MaxFallbackDays; i++ {
		fallbackDate := date.AddDays(-i)
		rate, ok := c.table.Lookup(fallbackDate, currency)
		if !ok {
			continue
		}
		c.diagnostics.Warn(ibrecondiag.Warning{
			Kind:    ibrecondiag.WarningKindRateSubstituted,
			Message: fmt.Sprintf("no %s exchange rate for %s, using %s", currency, date, fallbackDate),
			Date:    date,
		})
		return Quote{Currency: currency, Rate: rate, Date: fallbackDate}, nil
	}
	return Quote{}, &ibrecondiag.ReconciliationFailure{
		Stage:    ibrecondiag.StageCurrency,
		Reason:   fmt.Sprintf("no %s exchange rate on or before the date", currency),
		Date:     date,
		Attempts: MaxFallbackDays,
	}
}

// Convert converts amount in currency on date to the reporting currency.
func (c *Converter) Convert(date xtime.Date, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	quote, err := c.Resolve(date, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(quote.Rate), nil
}
