// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibrecondividend reconciles dividend, withholding tax, interest and
// fee cash flows for one report year.
package ibrecondividend

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Reconciler reconciles cash flows.
type Reconciler struct {
	converter       *ibreconfx.Converter
	diagnostics     *ibrecondiag.Diagnostics
	symbolToCompany map[string]ibrecondata.Company
	conidToName     map[string]string
}

// NewReconciler returns a new Reconciler.
func NewReconciler(
	converter *ibreconfx.Converter,
	diagnostics *ibrecondiag.Diagnostics,
	options ...ReconcilerOption,
) *Reconciler {
	reconciler := &Reconciler{
		converter:       converter,
		diagnostics:     diagnostics,
		symbolToCompany: make(map[string]ibrecondata.Company),
		conidToName:     make(map[string]string),
	}
	for _, option := range options {
		option(reconciler)
	}
	return reconciler
}

// ReconcilerOption is an option for a new Reconciler.
type ReconcilerOption func(*Reconciler)

// ReconcilerWithCompanies sets the payer metadata, keyed by symbol.
func ReconcilerWithCompanies(companies []ibrecondata.Company) ReconcilerOption {
	return func(reconciler *Reconciler) {
		for _, company := range companies {
			reconciler.symbolToCompany[company.Symbol] = company
		}
	}
}

// ReconcilerWithSecurityNames sets the security names, keyed by conid.
// A security name takes precedence over the company name as the payer name.
func ReconcilerWithSecurityNames(conidToName map[string]string) ReconcilerOption {
	return func(reconciler *Reconciler) {
		for conid, name := range conidToName {
			reconciler.conidToName[conid] = name
		}
	}
}

// Reconcile builds the dividend records of year from events.
//
// Every dividend and payment in lieu becomes one record. Every withholding
// tax is then added to the dividend it taxes: one booked earlier on the same
// day for the same security, picking the closest description when several
// qualify. A withholding tax with no such dividend is a
// *ibrecondiag.ReconciliationFailure. Reversed dividends are removed along
// with their reversal. The result is sorted by date and omits records whose
// amount rounds to zero or less.
func (r *Reconciler) Reconcile(events []ibrecondata.CashFlowEvent, year int) ([]*ibrecondata.DividendRecord, error) {
	events = lo.Filter(events, func(event ibrecondata.CashFlowEvent, _ int) bool {
		return event.Date.Year == year
	})
	records, err := r.collect(events)
	if err != nil {
		return nil, err
	}
	if err := r.matchWithholdingTaxes(records, events); err != nil {
		return nil, err
	}
	records = removeReversals(records)
	slices.SortStableFunc(records, func(a *ibrecondata.DividendRecord, b *ibrecondata.DividendRecord) int {
		return a.Date.Compare(b.Date)
	})
	records = lo.Filter(records, func(record *ibrecondata.DividendRecord, _ int) bool {
		return record.AmountInReportingCurrency.Round(2).IsPositive()
	})
	for _, record := range records {
		r.enrich(record)
	}
	return records, nil
}

// ReconcileInterest builds the interest and fee records of year from events,
// merging events of the same kind on the same day. Records that round to
// zero are omitted.
func (r *Reconciler) ReconcileInterest(events []ibrecondata.CashFlowEvent, year int) ([]*ibrecondata.InterestRecord, error) {
	type interestKey struct {
		date string
		kind ibrecondata.CashFlowKind
	}
	var keys []interestKey
	keyToRecord := make(map[interestKey]*ibrecondata.InterestRecord)
	for _, event := range events {
		if !event.Kind.IsInterest() || event.Date.Year != year {
			continue
		}
		amount, err := r.converter.Convert(event.Date, event.Currency, event.Amount)
		if err != nil {
			return nil, ibrecondiag.WithRecord(err, event.SecurityID, event.TransactionID)
		}
		key := interestKey{date: event.Date.String(), kind: event.Kind}
		record, ok := keyToRecord[key]
		if !ok {
			record = &ibrecondata.InterestRecord{
				Date:        event.Date,
				Kind:        event.Kind,
				Description: event.Description,
			}
			keyToRecord[key] = record
			keys = append(keys, key)
		}
		record.AmountInReportingCurrency = record.AmountInReportingCurrency.Add(amount)
		record.Count++
	}
	records := lo.FilterMap(keys, func(key interestKey, _ int) (*ibrecondata.InterestRecord, bool) {
		record := keyToRecord[key]
		return record, !record.AmountInReportingCurrency.Round(2).IsZero()
	})
	slices.SortStableFunc(records, func(a *ibrecondata.InterestRecord, b *ibrecondata.InterestRecord) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return int(a.Kind) - int(b.Kind)
	})
	return records, nil
}

// LongestCommonSubstring returns the length in runes of the longest
// contiguous substring shared by a and b.
func LongestCommonSubstring(a string, b string) int {
	aRunes := []rune(a)
	bRunes := []rune(b)
	previous := make([]int, len(bRunes)+1)
	current := make([]int, len(bRunes)+1)
	longest := 0
	for i := 1; i <= len(aRunes); i++ {
		for j := 1; j <= len(bRunes); j++ {
			if aRunes[i-1] == bRunes[j-1] {
				current[j] = previous[j-1] + 1
				longest = max(longest, current[j])
			} else {
				current[j] = 0
			}
		}
		previous, current = current, previous
	}
	return longest
}

// *** PRIVATE ***

func (r *Reconciler) collect(events []ibrecondata.CashFlowEvent) ([]*ibrecondata.DividendRecord, error) {
	var records []*ibrecondata.DividendRecord
	for _, event := range events {
		if !event.Kind.IsDividend() {
			continue
		}
		securityID := securityIDOf(event)
		amountInReportingCurrency, err := r.converter.Convert(event.Date, event.Currency, event.Amount)
		if err != nil {
			return nil, ibrecondiag.WithRecord(err, securityID, event.TransactionID)
		}
		records = append(records, &ibrecondata.DividendRecord{
			Date:                      event.Date,
			Kind:                      event.Kind,
			Symbol:                    event.Symbol,
			SecurityID:                securityID,
			Conid:                     event.Conid,
			Currency:                  event.Currency,
			Amount:                    event.Amount,
			AmountInReportingCurrency: amountInReportingCurrency,
			Description:               event.Description,
			TransactionIDs:            []string{event.TransactionID},
		})
	}
	return records, nil
}

type taxMatch struct {
	recordIndex int
	tax         decimal.Decimal
}

// matchWithholdingTaxes decides every match against the collected records
// before any tax is added to them.
func (r *Reconciler) matchWithholdingTaxes(records []*ibrecondata.DividendRecord, events []ibrecondata.CashFlowEvent) error {
	var matches []taxMatch
	for _, event := range events {
		if event.Kind != ibrecondata.CashFlowKindWithholdingTax {
			continue
		}
		securityID := securityIDOf(event)
		var candidates []int
		for i, record := range records {
			if record.Date == event.Date &&
				sameSecurity(record.SecurityID, record.Symbol, securityID, event.Symbol) &&
				transactionIDLess(record.TransactionIDs[0], event.TransactionID) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return &ibrecondiag.ReconciliationFailure{
				Stage:         ibrecondiag.StageDividend,
				Reason:        fmt.Sprintf("withholding tax %q of %s %s has no matching dividend booked before it, check the statement date range", event.Description, event.Amount, event.Currency),
				Date:          event.Date,
				SecurityID:    securityID,
				TransactionID: event.TransactionID,
			}
		}
		recordIndex := candidates[0]
		if len(candidates) > 1 {
			bestLength := 0
			for _, candidate := range candidates {
				if length := LongestCommonSubstring(event.Description, records[candidate].Description); length > bestLength {
					bestLength = length
					recordIndex = candidate
				}
			}
		}
		tax, err := r.converter.Convert(event.Date, event.Currency, event.Amount.Neg())
		if err != nil {
			return ibrecondiag.WithRecord(err, securityID, event.TransactionID)
		}
		matches = append(matches, taxMatch{recordIndex: recordIndex, tax: tax})
	}
	for _, match := range matches {
		record := records[match.recordIndex]
		record.TaxInReportingCurrency = record.TaxInReportingCurrency.Add(match.tax)
	}
	return nil
}

// removeReversals removes each negative record together with one record of
// the opposite amount on the same day for the same security.
func removeReversals(records []*ibrecondata.DividendRecord) []*ibrecondata.DividendRecord {
	removed := make([]bool, len(records))
	for i, reversal := range records {
		if removed[i] || !reversal.Amount.IsNegative() {
			continue
		}
		for j, record := range records {
			if i == j || removed[j] {
				continue
			}
			if record.Date == reversal.Date &&
				record.Amount.Equal(reversal.Amount.Neg()) &&
				sameSecurity(record.SecurityID, record.Symbol, reversal.SecurityID, reversal.Symbol) {
				removed[i] = true
				removed[j] = true
				break
			}
		}
	}
	return lo.Filter(records, func(_ *ibrecondata.DividendRecord, i int) bool {
		return !removed[i]
	})
}

func (r *Reconciler) enrich(record *ibrecondata.DividendRecord) {
	if company, ok := r.symbolToCompany[record.Symbol]; ok {
		record.PayerName = company.Name
		record.TaxNumber = company.TaxNumber
		record.Address = company.Address
		record.Country = company.Country
		record.ReliefStatement = company.ReliefStatement
	} else {
		r.diagnostics.Warn(ibrecondiag.Warning{
			Kind:       ibrecondiag.WarningKindMissingCompany,
			Message:    fmt.Sprintf("no company metadata for symbol %s (conid %s), payer fields left blank", record.Symbol, record.Conid),
			SecurityID: record.SecurityID,
		})
	}
	if name, ok := r.conidToName[record.Conid]; ok && name != "" {
		record.PayerName = name
	}
}

func securityIDOf(event ibrecondata.CashFlowEvent) string {
	if event.SecurityID != "" {
		return event.SecurityID
	}
	return event.Conid
}

func sameSecurity(securityID string, symbol string, otherSecurityID string, otherSymbol string) bool {
	return (securityID != "" && securityID == otherSecurityID) || (symbol != "" && symbol == otherSymbol)
}

// transactionIDLess compares numerically when both ids are numbers.
func transactionIDLess(a string, b string) bool {
	aNumber, aErr := strconv.ParseUint(a, 10, 64)
	bNumber, bErr := strconv.ParseUint(b, 10, 64)
	if aErr == nil && bErr == nil {
		return aNumber < bNumber
	}
	return a < b
}
