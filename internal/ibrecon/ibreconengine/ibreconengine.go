// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconengine runs the reconciliation pipeline.
package ibreconengine

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconclassify"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondividend"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfill"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfx"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconidentity"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconledger"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconlot"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconsplit"
	"github.com/google/uuid"
)

// Input is the already-loaded input of a run.
type Input struct {
	// Files are the parsed statements, in file order.
	Files []*ibrecondata.SourceFile
	// Splits may be nil.
	Splits *ibreconsplit.SplitRegistry
	Rates  *ibreconfx.RateTable
	// SecurityNames maps conid to security description.
	SecurityNames map[string]string
	Companies     []ibrecondata.Company
	// Warnings were found while reading the input and are reported with the run.
	Warnings []ibrecondiag.Warning
}

// Config configures a run.
type Config struct {
	ReportYear        int
	ReportingCurrency string
	NormalAssets      []string
	DerivativeAssets  []string
	// CurrencyAliases maps a currency code to the code whose rates it uses.
	CurrencyAliases map[string]string
}

// Result is the result of a run.
type Result struct {
	RunID string
	// Ledger, Dividends and Interest are nil if the run failed.
	Ledger    *ibreconledger.Ledger
	Dividends []*ibrecondata.DividendRecord
	Interest  []*ibrecondata.InterestRecord
	Warnings  []ibrecondiag.Warning
}

// Run runs the pipeline.
//
// A non-nil Result is always returned so that the warnings recorded before a
// failure can be reported. Fatal conditions are *ibrecondiag.ReconciliationFailure.
func Run(logger *slog.Logger, input Input, config Config) (*Result, error) {
	result := &Result{
		RunID: uuid.NewString(),
	}
	logger = logger.With(slog.String("run_id", result.RunID))
	diagnostics := ibrecondiag.NewDiagnostics(logger)
	for _, warning := range input.Warnings {
		diagnostics.Warn(warning)
	}
	ledger, dividends, interest, err := run(logger, diagnostics, input, config)
	result.Warnings = diagnostics.Warnings()
	if err != nil {
		return result, err
	}
	result.Ledger = ledger
	result.Dividends = dividends
	result.Interest = interest
	logger.Info(
		"reconciled",
		slog.Int("trades", ledger.TradeCount()),
		slog.Int("dividends", len(dividends)),
		slog.Int("interest", len(interest)),
		slog.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// *** PRIVATE ***

func run(
	logger *slog.Logger,
	diagnostics *ibrecondiag.Diagnostics,
	input Input,
	config Config,
) (*ibreconledger.Ledger, []*ibrecondata.DividendRecord, []*ibrecondata.InterestRecord, error) {
	if config.ReportYear == 0 {
		return nil, nil, nil, fmt.Errorf("report year is not set")
	}
	assetSets, err := ibreconclassify.NewAssetSets(config.NormalAssets, config.DerivativeAssets)
	if err != nil {
		return nil, nil, nil, err
	}
	rates := input.Rates
	if rates == nil {
		rates = ibreconfx.NewRateTable()
	}
	splits := input.Splits
	if splits == nil {
		splits = ibreconsplit.NewSplitRegistry()
	}
	converter := ibreconfx.NewConverter(config.ReportingCurrency, rates, config.CurrencyAliases, diagnostics)

	resolver := ibreconidentity.NewResolver()
	var events []ibrecondata.CashFlowEvent
	sequence := 0
	for _, file := range input.Files {
		for _, trade := range file.Trades {
			trade = trade.Clone()
			trade.Sequence = sequence
			sequence++
			resolver.Add(trade)
		}
		events = append(events, file.CashFlowEvents...)
	}
	buckets := resolver.Buckets()
	warnFragmented(buckets, diagnostics)
	logger.Debug("resolved securities", slog.Int("securities", buckets.Len()), slog.Int("trades", buckets.TradeCount()))

	buckets = ibreconsplit.Adjust(buckets, splits)
	buckets, err = ibreconclassify.Classify(buckets, assetSets, converter, diagnostics)
	if err != nil {
		return nil, nil, nil, err
	}
	reportBuckets := ibrecondata.NewBuckets()
	for _, id := range buckets.IDs() {
		trades, err := ibreconlot.Attribute(id, buckets.Trades(id), config.ReportYear)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(trades) == 0 {
			continue
		}
		reportBuckets.Append(id, ibreconfill.Merge(trades)...)
	}
	ledger, err := ibreconledger.Build(reportBuckets)
	if err != nil {
		return nil, nil, nil, err
	}

	reconciler := ibrecondividend.NewReconciler(
		converter,
		diagnostics,
		ibrecondividend.ReconcilerWithCompanies(input.Companies),
		ibrecondividend.ReconcilerWithSecurityNames(input.SecurityNames),
	)
	dividends, err := reconciler.Reconcile(events, config.ReportYear)
	if err != nil {
		return nil, nil, nil, err
	}
	interest, err := reconciler.ReconcileInterest(events, config.ReportYear)
	if err != nil {
		return nil, nil, nil, err
	}
	return ledger, dividends, interest, nil
}

// warnFragmented warns about symbols that ended up in more than one bucket.
func warnFragmented(buckets *ibrecondata.Buckets, diagnostics *ibrecondiag.Diagnostics) {
	var symbols []string
	symbolToIDs := make(map[string][]string)
	for _, id := range buckets.IDs() {
		for _, trade := range buckets.Trades(id) {
			symbol := trade.Keys.Symbol
			if symbol == "" || slices.Contains(symbolToIDs[symbol], id) {
				continue
			}
			if _, ok := symbolToIDs[symbol]; !ok {
				symbols = append(symbols, symbol)
			}
			symbolToIDs[symbol] = append(symbolToIDs[symbol], id)
		}
	}
	for _, symbol := range symbols {
		ids := symbolToIDs[symbol]
		if len(ids) < 2 {
			continue
		}
		diagnostics.Warn(ibrecondiag.Warning{
			Kind:       ibrecondiag.WarningKindFragmentedSecurity,
			Message:    fmt.Sprintf("symbol %s is split across securities %s", symbol, strings.Join(ids, ", ")),
			SecurityID: ids[0],
		})
	}
}
