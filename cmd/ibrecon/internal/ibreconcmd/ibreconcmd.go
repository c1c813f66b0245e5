// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconcmd provides shared wiring for ibrecon commands (resolving
// the base directory, reading config, getting the IBKR token, constructing
// clients, and running the reconciliation).
package ibreconcmd

import (
	"errors"
	"fmt"
	"io/fs"

	"buf.build/go/app/appext"
	"github.com/Rhymond/go-money"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconconfig"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondownload"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconengine"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfx"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconingest"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconpath"
	"github.com/bufdev/ibrecon/internal/pkg/bsi"
	"github.com/bufdev/ibrecon/internal/pkg/cliio"
	"github.com/bufdev/ibrecon/internal/pkg/frankfurter"
	"github.com/bufdev/ibrecon/internal/pkg/ibkrflexquery"
	"github.com/bufdev/ibrecon/internal/standard/xos"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	// DirFlagName is the flag name for the base directory.
	DirFlagName = "dir"
	// DirFlagUsage is the usage of the base directory flag.
	DirFlagUsage = "The ibrecon directory containing ibrecon.yaml"
	// FormatFlagName is the flag name for the output format.
	FormatFlagName = "format"

	// ibkrTokenEnvVar is the environment variable name for the IBKR Flex Web Service token.
	ibkrTokenEnvVar = "IBKR_TOKEN"
)

// DirPath resolves the value of the base directory flag to an absolute path.
func DirPath(dir string) (string, error) {
	return xos.AbsPath(dir)
}

// IBKRToken returns the IBKR Flex Web Service token from the environment,
// falling back to the .env file in the base directory.
func IBKRToken(container appext.Container, dirPath string) (string, error) {
	if ibkrToken := container.Env(ibkrTokenEnvVar); ibkrToken != "" {
		return ibkrToken, nil
	}
	envFilePath := ibreconpath.EnvFilePath(dirPath)
	env, err := godotenv.Read(envFilePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading %s: %w", envFilePath, err)
	}
	if ibkrToken := env[ibkrTokenEnvVar]; ibkrToken != "" {
		return ibkrToken, nil
	}
	return "", fmt.Errorf("%s is required, set it in the environment or in %s to your IBKR Flex Web Service token", ibkrTokenEnvVar, envFilePath)
}

// NewDownloader constructs a Downloader with the API clients.
func NewDownloader(container appext.Container, dirPath string, config *ibreconconfig.Config) ibrecondownload.Downloader {
	logger := container.Logger()
	return ibrecondownload.NewDownloader(
		logger,
		dirPath,
		config,
		ibkrflexquery.NewClient(logger),
		bsi.NewClient(),
		frankfurter.NewClient(),
	)
}

// Reconcile reads the configuration, statements and stored exchange rates
// from the base directory and runs the reconciliation.
//
// The Result is returned with a ReconciliationFailure so that warnings can
// still be shown.
func Reconcile(container appext.Container, dirPath string) (*ibreconconfig.Config, *ibreconengine.Result, error) {
	config, err := ibreconconfig.ReadConfig(dirPath)
	if err != nil {
		return nil, nil, err
	}
	logger := container.Logger()
	statements, err := ibreconingest.ReadDir(logger, ibreconpath.StatementsDirPath(dirPath), config.IgnoredAssets)
	if err != nil {
		return nil, nil, err
	}
	rates, err := ibreconfx.NewStore(ibreconpath.CacheFXDirPath(dirPath)).LoadTable(config.ReportingCurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("loading exchange rates: %w", err)
	}
	result, err := ibreconengine.Run(
		logger,
		ibreconengine.Input{
			Files:         statements.Files,
			Splits:        statements.Splits,
			Rates:         rates,
			SecurityNames: statements.SecurityNames,
			Companies:     config.Companies,
			Warnings:      statements.Warnings,
		},
		ibreconengine.Config{
			ReportYear:        config.ReportYear,
			ReportingCurrency: config.ReportingCurrency,
			NormalAssets:      config.NormalAssets,
			DerivativeAssets:  config.DerivativeAssets,
			CurrencyAliases:   config.CurrencyAliases,
		},
	)
	if err != nil && result != nil {
		logger.Warn("reconciliation failed", "run_id", result.RunID, "warnings", len(result.Warnings))
	}
	return config, result, err
}

// PricePlaces is the number of decimal places per-unit prices are printed with.
const PricePlaces = 4

// FormatPrice formats a per-unit price with PricePlaces decimal places.
func FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(PricePlaces)
}

// FormatAmount formats an amount with the minor unit precision of the currency.
func FormatAmount(amount decimal.Decimal, currencyCode string) string {
	places := int32(2)
	if currency := money.GetCurrency(currencyCode); currency != nil {
		places = int32(currency.Fraction)
	}
	return amount.StringFixed(places)
}

// WarningsTable returns warnings as a cliio.Table.
func WarningsTable(warnings []ibrecondiag.Warning) cliio.Table {
	table := cliio.Table{
		Headers: []string{"KIND", "DATE", "SECURITY", "TRANSACTION", "MESSAGE"},
	}
	for _, warning := range warnings {
		date := ""
		if !warning.Date.IsZero() {
			date = warning.Date.String()
		}
		table.Rows = append(table.Rows, []string{
			warning.Kind.String(),
			date,
			warning.SecurityID,
			warning.TransactionID,
			warning.Message,
		})
	}
	return table
}
