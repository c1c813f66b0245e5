// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package trades implements the "trades" command.
package trades

import (
	"context"
	"strings"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/ibreconcmd"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconledger"
	"github.com/bufdev/ibrecon/internal/pkg/cliio"
	"github.com/spf13/pflag"
)

const ledgerFlagName = "ledger"

// NewCommand returns a new trades command that prints the reconciled trade ledgers.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Print the reconciled trades of the report year by ledger",
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
	// Ledgers restricts the output to the given ledgers, all if empty.
	Ledgers []string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ibreconcmd.DirFlagName, ".", ibreconcmd.DirFlagUsage)
	flagSet.StringVar(&f.Format, ibreconcmd.FormatFlagName, "table", "Output format (table, csv, json)")
	flagSet.StringSliceVar(
		&f.Ledgers,
		ledgerFlagName,
		nil,
		"The ledgers to print ("+strings.Join(ibreconledger.AllKindStrings, ", ")+"), all if not set",
	)
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	kinds, err := parseKinds(flags.Ledgers)
	if err != nil {
		return err
	}
	dirPath, err := ibreconcmd.DirPath(flags.Dir)
	if err != nil {
		return err
	}
	config, result, err := ibreconcmd.Reconcile(container, dirPath)
	if err != nil {
		return err
	}
	table, rows := newTradeRows(result.Ledger, kinds, config.ReportingCurrency)
	return cliio.Write(container.Stdout(), format, table, rows)
}

// tradeRow is the JSON form of a ledger row.
type tradeRow struct {
	Ledger string `json:"ledger"`
	*ibrecondata.Trade
}

func parseKinds(values []string) ([]ibreconledger.Kind, error) {
	if len(values) == 0 {
		return ibreconledger.AllKinds, nil
	}
	kinds := make([]ibreconledger.Kind, 0, len(values))
	for _, value := range values {
		kind, err := ibreconledger.ParseKind(value)
		if err != nil {
			return nil, appcmd.NewInvalidArgumentError(err.Error())
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func newTradeRows(ledger *ibreconledger.Ledger, kinds []ibreconledger.Kind, reportingCurrency string) (cliio.Table, []tradeRow) {
	table := cliio.Table{
		Headers: []string{
			"LEDGER",
			"SECURITY",
			"SYMBOL",
			"DATE",
			"TIME",
			"O/C",
			"QUANTITY",
			"PRICE",
			"CURRENCY",
			"PRICE (" + reportingCurrency + ")",
			"TRANSACTION",
			"ORDER",
		},
	}
	var rows []tradeRow
	for _, kind := range kinds {
		for _, trade := range ledger.Rows(kind) {
			table.Rows = append(table.Rows, []string{
				kind.String(),
				trade.CanonicalSecurityID,
				trade.Keys.Symbol,
				trade.TradeDate.String(),
				trade.TradeTime,
				trade.OpenCloseIndicator.String(),
				trade.Quantity.String(),
				trade.Price.String(),
				trade.Currency,
				ibreconcmd.FormatPrice(trade.PriceInReportingCurrency),
				trade.TransactionID,
				trade.OrderID,
			})
			rows = append(rows, tradeRow{Ledger: kind.String(), Trade: trade})
		}
	}
	return table, rows
}
