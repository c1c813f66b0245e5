// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibrecondividend

import (
	"log/slog"
	"testing"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfx"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var payDate = xtime.Date{Year: 2023, Month: 5, Day: 15}

func TestReconcileReversal(t *testing.T) {
	t.Parallel()
	reconciler, diagnostics := newTestReconciler(t)
	records, err := reconciler.Reconcile(
		[]ibrecondata.CashFlowEvent{
			newDividend("100", "EUR", "120", "ACME(US0000000001) Cash Dividend"),
			newDividend("101", "EUR", "-120", "ACME(US0000000001) Cash Dividend - Reversal"),
		},
		2023,
	)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Empty(t, diagnostics.Warnings())
}

func TestReconcileReversalConsumesOnePair(t *testing.T) {
	t.Parallel()
	reconciler, _ := newTestReconciler(t)
	other := newDividend("200", "EUR", "120", "OTHER Cash Dividend")
	other.Date = payDate.AddDays(1)
	records, err := reconciler.Reconcile(
		[]ibrecondata.CashFlowEvent{
			newDividend("100", "EUR", "120", "ACME Cash Dividend"),
			newDividend("101", "EUR", "120", "ACME Cash Dividend"),
			newDividend("102", "EUR", "-120", "ACME Cash Dividend - Reversal"),
			other,
		},
		2023,
	)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []string{"101"}, records[0].TransactionIDs)
	require.Equal(t, []string{"200"}, records[1].TransactionIDs)
}

func TestReconcileWithholdingTax(t *testing.T) {
	t.Parallel()
	reconciler, _ := newTestReconciler(t)
	records, err := reconciler.Reconcile(
		[]ibrecondata.CashFlowEvent{
			newDividend("10", "USD", "50", "ACME Cash Dividend USD 0.50"),
			newWithholdingTax("11", "USD", "-5", "first"),
			newWithholdingTax("12", "USD", "-2.5", "second"),
		},
		2023,
	)
	require.NoError(t, err)
	require.Len(t, records, 1)
	record := records[0]
	require.True(t, decimal.NewFromInt(40).Equal(record.AmountInReportingCurrency))
	require.True(t, decimal.NewFromInt(6).Equal(record.TaxInReportingCurrency), record.TaxInReportingCurrency.String())
	require.Equal(t, "ACME Corporation", record.PayerName)
	require.Equal(t, "US", record.Country)
	require.Equal(t, "relief", record.ReliefStatement)
}

func TestReconcileWithholdingTaxBeforeDividend(t *testing.T) {
	t.Parallel()
	reconciler, _ := newTestReconciler(t)
	_, err := reconciler.Reconcile(
		[]ibrecondata.CashFlowEvent{
			newWithholdingTax("9", "USD", "-5", "ACME Cash Dividend USD 0.50 - US Tax"),
			newDividend("10", "USD", "50", "ACME Cash Dividend USD 0.50"),
		},
		2023,
	)
	failure, ok := ibrecondiag.AsReconciliationFailure(err)
	require.True(t, ok)
	require.Equal(t, ibrecondiag.StageDividend, failure.Stage)
	require.Equal(t, "9", failure.TransactionID)
	require.Equal(t, "US0000000001", failure.SecurityID)
	require.Equal(t, payDate, failure.Date)
}

func TestReconcileWithholdingTaxClosestDescription(t *testing.T) {
	t.Parallel()
	reconciler, _ := newTestReconciler(t)
	records, err := reconciler.Reconcile(
		[]ibrecondata.CashFlowEvent{
			newDividend("10", "EUR", "30", "ACME Cash Dividend EUR 0.30 per Share"),
			newDividend("11", "EUR", "70", "ACME Special Dividend EUR 0.70 per Share"),
			newWithholdingTax("12", "EUR", "-7", "ACME Special Dividend EUR 0.70 - Tax"),
			// Equal overlap with both: the first candidate wins.
			newWithholdingTax("13", "EUR", "-1", "zzz"),
		},
		2023,
	)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.True(t, decimal.NewFromInt(1).Equal(records[0].TaxInReportingCurrency))
	require.True(t, decimal.NewFromInt(7).Equal(records[1].TaxInReportingCurrency))
}

func TestReconcileFilters(t *testing.T) {
	t.Parallel()
	reconciler, diagnostics := newTestReconciler(t)
	lastYear := newDividend("1", "EUR", "10", "ACME")
	lastYear.Date = xtime.Date{Year: 2022, Month: 12, Day: 31}
	unknown := newDividend("2", "EUR", "10", "UNKNOWN Cash Dividend")
	unknown.Symbol = "UNKNOWN"
	unknown.SecurityID = ""
	unknown.Conid = "777"
	records, err := reconciler.Reconcile(
		[]ibrecondata.CashFlowEvent{
			lastYear,
			newDividend("3", "EUR", "0.004", "ACME dust"),
			unknown,
		},
		2023,
	)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "777", records[0].SecurityID)
	require.Equal(t, "Unknown Holdings Inc", records[0].PayerName)
	warnings := diagnostics.Warnings()
	require.Len(t, warnings, 1)
	require.Equal(t, ibrecondiag.WarningKindMissingCompany, warnings[0].Kind)
}

func TestReconcileInterest(t *testing.T) {
	t.Parallel()
	reconciler, _ := newTestReconciler(t)
	records, err := reconciler.ReconcileInterest(
		[]ibrecondata.CashFlowEvent{
			{Kind: ibrecondata.CashFlowKindBrokerInterest, Currency: "USD", Amount: decimal.NewFromInt(10), Date: payDate, Description: "USD CREDIT INT"},
			{Kind: ibrecondata.CashFlowKindBrokerFee, Currency: "EUR", Amount: decimal.NewFromInt(-3), Date: payDate, Description: "FEE"},
			{Kind: ibrecondata.CashFlowKindBrokerInterest, Currency: "EUR", Amount: decimal.NewFromInt(2), Date: payDate, Description: "EUR CREDIT INT"},
			{Kind: ibrecondata.CashFlowKindBrokerInterest, Currency: "EUR", Amount: decimal.NewFromInt(1), Date: payDate.AddDays(-1), Description: "EUR CREDIT INT"},
			{Kind: ibrecondata.CashFlowKindBrokerInterest, Currency: "EUR", Amount: decimal.NewFromInt(-1), Date: payDate.AddDays(-1), Description: "EUR CREDIT INT reversal"},
			{Kind: ibrecondata.CashFlowKindDividend, Currency: "EUR", Amount: decimal.NewFromInt(100), Date: payDate},
		},
		2023,
	)
	require.NoError(t, err)
	type row struct {
		Date   string
		Kind   ibrecondata.CashFlowKind
		Amount string
		Count  int
	}
	var rows []row
	for _, record := range records {
		rows = append(rows, row{record.Date.String(), record.Kind, record.AmountInReportingCurrency.String(), record.Count})
	}
	require.Empty(t, cmp.Diff(
		[]row{
			{"2023-05-15", ibrecondata.CashFlowKindBrokerInterest, "10", 2},
			{"2023-05-15", ibrecondata.CashFlowKindBrokerFee, "-3", 1},
		},
		rows,
	))
}

func TestLongestCommonSubstring(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0, LongestCommonSubstring("", "abc"))
	require.Equal(t, 0, LongestCommonSubstring("abc", "xyz"))
	require.Equal(t, 3, LongestCommonSubstring("xabcx", "yyabcyy"))
	require.Equal(t, 2, LongestCommonSubstring("čšž", "ašž"))
}

func newTestReconciler(t *testing.T) (*Reconciler, *ibrecondiag.Diagnostics) {
	table := ibreconfx.NewRateTable()
	require.NoError(t, table.Set(payDate, "USD", decimal.RequireFromString("1.25")))
	require.NoError(t, table.Set(payDate.AddDays(-1), "USD", decimal.RequireFromString("1.25")))
	diagnostics := ibrecondiag.NewDiagnostics(slog.New(slog.DiscardHandler))
	converter := ibreconfx.NewConverter("EUR", table, nil, diagnostics)
	return NewReconciler(
		converter,
		diagnostics,
		ReconcilerWithCompanies([]ibrecondata.Company{
			{Symbol: "ACME", Name: "ACME Corporation", Country: "US", ReliefStatement: "relief"},
		}),
		ReconcilerWithSecurityNames(map[string]string{"777": "Unknown Holdings Inc"}),
	), diagnostics
}

func newDividend(transactionID string, currency string, amount string, description string) ibrecondata.CashFlowEvent {
	return ibrecondata.CashFlowEvent{
		Kind:          ibrecondata.CashFlowKindDividend,
		Currency:      currency,
		Amount:        decimal.RequireFromString(amount),
		Date:          payDate,
		Symbol:        "ACME",
		SecurityID:    "US0000000001",
		Conid:         "265598",
		TransactionID: transactionID,
		Description:   description,
	}
}

func newWithholdingTax(transactionID string, currency string, amount string, description string) ibrecondata.CashFlowEvent {
	event := newDividend(transactionID, currency, amount, description)
	event.Kind = ibrecondata.CashFlowKindWithholdingTax
	return event
}
