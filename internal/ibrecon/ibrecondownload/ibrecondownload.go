// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibrecondownload downloads Flex Query statements and the exchange
// rates the statements need.
package ibrecondownload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconconfig"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfx"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconingest"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconpath"
	"github.com/bufdev/ibrecon/internal/pkg/bsi"
	"github.com/bufdev/ibrecon/internal/pkg/frankfurter"
	"github.com/bufdev/ibrecon/internal/pkg/ibkrflexquery"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// Downloader downloads statements and exchange rates into the base directory.
type Downloader interface {
	// DownloadStatement fetches the configured Flex Query for the inclusive
	// date range and writes it to the statements directory. Returns the
	// path of the written file.
	DownloadStatement(ctx context.Context, ibkrToken string, fromDate xtime.Date, toDate xtime.Date) (string, error)
	// UpdateRates fetches the exchange rates that the statements in the
	// statements directory need and are not yet stored. Returns the number
	// of rates added.
	UpdateRates(ctx context.Context) (int, error)
}

// NewDownloader creates a new Downloader with all required dependencies.
func NewDownloader(
	logger *slog.Logger,
	dirPath string,
	config *ibreconconfig.Config,
	flexQueryClient ibkrflexquery.Client,
	bsiClient bsi.Client,
	frankfurterClient frankfurter.Client,
) Downloader {
	return &downloader{
		logger:            logger,
		dirPath:           dirPath,
		config:            config,
		flexQueryClient:   flexQueryClient,
		bsiClient:         bsiClient,
		frankfurterClient: frankfurterClient,
		store:             ibreconfx.NewStore(ibreconpath.CacheFXDirPath(dirPath)),
	}
}

// *** PRIVATE ***

type downloader struct {
	logger            *slog.Logger
	dirPath           string
	config            *ibreconconfig.Config
	flexQueryClient   ibkrflexquery.Client
	bsiClient         bsi.Client
	frankfurterClient frankfurter.Client
	store             *ibreconfx.Store
}

func (d *downloader) DownloadStatement(ctx context.Context, ibkrToken string, fromDate xtime.Date, toDate xtime.Date) (string, error) {
	if ibkrToken == "" {
		return "", errors.New("IBKR_TOKEN is not set")
	}
	if d.config.IBKRQueryID == "" {
		return "", errors.New("ibkr.query_id is not set in the configuration file")
	}
	if fromDate.IsZero() || toDate.IsZero() {
		return "", errors.New("start and end dates are required")
	}
	if toDate.Before(fromDate) {
		return "", fmt.Errorf("end date %s is before start date %s", toDate, fromDate)
	}
	d.logger.Info("downloading flex query", "query_id", d.config.IBKRQueryID, "from", fromDate.String(), "to", toDate.String())
	data, err := d.flexQueryClient.Download(ctx, ibkrToken, d.config.IBKRQueryID, fromDate, toDate)
	if err != nil {
		return "", fmt.Errorf("downloading flex query: %w", err)
	}
	if err := os.MkdirAll(ibreconpath.StatementsDirPath(d.dirPath), 0o755); err != nil {
		return "", fmt.Errorf("creating statements directory: %w", err)
	}
	filePath := ibreconpath.StatementFilePath(d.dirPath, d.config.IBKRQueryID, fromDate.CompactString(), toDate.CompactString())
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", err
	}
	d.logger.Info("statement written", "path", filePath, "bytes", len(data))
	return filePath, nil
}

func (d *downloader) UpdateRates(ctx context.Context) (int, error) {
	statements, err := ibreconingest.ReadDir(d.logger, ibreconpath.StatementsDirPath(d.dirPath), d.config.IgnoredAssets)
	if err != nil {
		return 0, err
	}
	requirement := newRateRequirement(d.config.ReportingCurrency, d.config.CurrencyAliases)
	requirement.addStatements(statements)
	if len(requirement.currencies) == 0 {
		d.logger.Info("no foreign currencies in statements")
		return 0, nil
	}
	// Fallback lookups reach back before the earliest date.
	startDate := requirement.startDate.AddDays(-ibreconfx.MaxFallbackDays)
	endDate := requirement.endDate
	if latestDate, ok, err := d.earliestLatestDate(requirement.currencies, requirement.startDate); err != nil {
		return 0, err
	} else if ok {
		startDate = latestDate.AddDays(1)
	}
	if endDate.Before(startDate) {
		d.logger.Info("exchange rates up to date", "currencies", requirement.currencies)
		return 0, nil
	}
	d.logger.Info(
		"downloading exchange rates",
		"provider", string(d.config.FXProvider),
		"currencies", requirement.currencies,
		"from", startDate.String(),
		"to", endDate.String(),
	)
	currencyToRates, err := d.fetchRates(ctx, requirement.currencies, startDate, endDate)
	if err != nil {
		return 0, err
	}
	var total int
	for _, currency := range requirement.currencies {
		added, err := d.store.WritePair(d.config.ReportingCurrency, currency, currencyToRates[currency])
		if err != nil {
			return 0, err
		}
		if len(currencyToRates[currency]) == 0 {
			d.logger.Warn("provider has no rates for currency", "currency", currency)
		}
		total += added
	}
	d.logger.Info("exchange rates written", "added", total)
	return total, nil
}

// earliestLatestDate returns the oldest of the latest stored dates of the
// currencies, or false if any currency has no rates back to firstDate.
func (d *downloader) earliestLatestDate(currencies []string, firstDate xtime.Date) (xtime.Date, bool, error) {
	var earliest xtime.Date
	for i, currency := range currencies {
		rates, err := d.store.ReadPair(d.config.ReportingCurrency, currency)
		if err != nil {
			return xtime.Date{}, false, err
		}
		if len(rates) == 0 || rates[0].Date.After(firstDate) {
			return xtime.Date{}, false, nil
		}
		latestDate := rates[len(rates)-1].Date
		if i == 0 || latestDate.Before(earliest) {
			earliest = latestDate
		}
	}
	return earliest, true, nil
}

func (d *downloader) fetchRates(
	ctx context.Context,
	currencies []string,
	startDate xtime.Date,
	endDate xtime.Date,
) (map[string][]ibreconfx.Rate, error) {
	currencyToRates := make(map[string][]ibreconfx.Rate, len(currencies))
	add := func(date xtime.Date, rates map[string]decimal.Decimal) {
		for _, currency := range currencies {
			if rate, ok := rates[currency]; ok && rate.IsPositive() {
				currencyToRates[currency] = append(currencyToRates[currency], ibreconfx.Rate{Date: date, Rate: rate})
			}
		}
	}
	switch d.config.FXProvider {
	case ibreconconfig.FXProviderBSI:
		if d.config.ReportingCurrency != bsi.BaseCurrency {
			return nil, fmt.Errorf("%s rates are only available against %s", ibreconconfig.FXProviderBSI, bsi.BaseCurrency)
		}
		dailyRates, err := d.bsiClient.GetRates(ctx, startDate, endDate)
		if err != nil {
			return nil, fmt.Errorf("fetching rates: %w", err)
		}
		for _, daily := range dailyRates {
			add(daily.Date, daily.Rates)
		}
	case ibreconconfig.FXProviderFrankfurter:
		dailyRates, err := d.frankfurterClient.GetRates(ctx, d.config.ReportingCurrency, currencies, startDate, endDate)
		if err != nil {
			return nil, fmt.Errorf("fetching rates: %w", err)
		}
		for _, daily := range dailyRates {
			add(daily.Date, daily.Rates)
		}
	default:
		return nil, fmt.Errorf("unknown exchange rate provider %q", d.config.FXProvider)
	}
	return currencyToRates, nil
}

// rateRequirement is the set of currencies and the date range the statements need.
type rateRequirement struct {
	reportingCurrency string
	aliases           map[string]string
	currencies        []string
	startDate         xtime.Date
	endDate           xtime.Date
}

func newRateRequirement(reportingCurrency string, aliases map[string]string) *rateRequirement {
	return &rateRequirement{
		reportingCurrency: reportingCurrency,
		aliases:           aliases,
	}
}

func (r *rateRequirement) addStatements(statements *ibreconingest.Statements) {
	for _, file := range statements.Files {
		for _, trade := range file.Trades {
			r.add(trade.Currency, trade.TradeDate)
		}
		for _, event := range file.CashFlowEvents {
			r.add(event.Currency, event.Date)
		}
	}
	slices.Sort(r.currencies)
}

func (r *rateRequirement) add(currency string, date xtime.Date) {
	if canonical, ok := r.aliases[currency]; ok {
		currency = canonical
	}
	if currency == "" || currency == r.reportingCurrency {
		return
	}
	if !slices.Contains(r.currencies, currency) {
		r.currencies = append(r.currencies, currency)
	}
	if r.startDate.IsZero() || date.Before(r.startDate) {
		r.startDate = date
	}
	if r.endDate.IsZero() || date.After(r.endDate) {
		r.endDate = date
	}
}
