// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dividends implements the "dividends" command.
package dividends

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/ibreconcmd"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/pkg/cliio"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// NewCommand returns a new dividends command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Print the dividends of the report year with matched withholding tax",
		Args:  appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	Dir    string
	Format string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ibreconcmd.DirFlagName, ".", ibreconcmd.DirFlagUsage)
	flagSet.StringVar(&f.Format, ibreconcmd.FormatFlagName, "table", "Output format (table, csv, json)")
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	dirPath, err := ibreconcmd.DirPath(flags.Dir)
	if err != nil {
		return err
	}
	config, result, err := ibreconcmd.Reconcile(container, dirPath)
	if err != nil {
		return err
	}
	return cliio.Write(container.Stdout(), format, newTable(result.Dividends, config.ReportingCurrency), result.Dividends)
}

func newTable(dividends []*ibrecondata.DividendRecord, reportingCurrency string) cliio.Table {
	table := cliio.Table{
		Headers: []string{
			"DATE",
			"KIND",
			"SYMBOL",
			"SECURITY",
			"CURRENCY",
			"AMOUNT",
			"AMOUNT (" + reportingCurrency + ")",
			"TAX (" + reportingCurrency + ")",
			"PAYER",
			"COUNTRY",
		},
	}
	amountTotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, dividend := range dividends {
		table.Rows = append(table.Rows, []string{
			dividend.Date.String(),
			dividend.Kind.String(),
			dividend.Symbol,
			dividend.SecurityID,
			dividend.Currency,
			ibreconcmd.FormatAmount(dividend.Amount, dividend.Currency),
			ibreconcmd.FormatAmount(dividend.AmountInReportingCurrency, reportingCurrency),
			ibreconcmd.FormatAmount(dividend.TaxInReportingCurrency, reportingCurrency),
			dividend.PayerName,
			dividend.Country,
		})
		amountTotal = amountTotal.Add(dividend.AmountInReportingCurrency)
		taxTotal = taxTotal.Add(dividend.TaxInReportingCurrency)
	}
	table.Totals = []string{
		"TOTAL", "", "", "", "", "",
		ibreconcmd.FormatAmount(amountTotal, reportingCurrency),
		ibreconcmd.FormatAmount(taxTotal, reportingCurrency),
		"", "",
	}
	return table
}
