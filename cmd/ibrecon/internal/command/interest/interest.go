// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package interest implements the "interest" command.
package interest

import (
	"context"
	"strconv"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/ibreconcmd"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/pkg/cliio"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// NewCommand returns a new interest command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Print the daily broker interest and fees of the report year",
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
	return cliio.Write(container.Stdout(), format, newTable(result.Interest, config.ReportingCurrency), result.Interest)
}

func newTable(interest []*ibrecondata.InterestRecord, reportingCurrency string) cliio.Table {
	table := cliio.Table{
		Headers: []string{"DATE", "KIND", "AMOUNT (" + reportingCurrency + ")", "COUNT", "DESCRIPTION"},
	}
	total := decimal.Zero
	for _, record := range interest {
		table.Rows = append(table.Rows, []string{
			record.Date.String(),
			record.Kind.String(),
			ibreconcmd.FormatAmount(record.AmountInReportingCurrency, reportingCurrency),
			strconv.Itoa(record.Count),
			record.Description,
		})
		total = total.Add(record.AmountInReportingCurrency)
	}
	table.Totals = []string{"TOTAL", "", ibreconcmd.FormatAmount(total, reportingCurrency), "", ""}
	return table
}
