// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package check implements the "check" command.
package check

import (
	"context"
	"fmt"
	"io"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/ibreconcmd"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconengine"
	"github.com/bufdev/ibrecon/internal/pkg/cliio"
	"github.com/spf13/pflag"
)

// NewCommand returns a new check command that runs the reconciliation and prints its diagnostics.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Run the reconciliation and print its warnings",
		Long:  "Runs the reconciliation of the report year without printing reports, and prints every warning raised. Exits non-zero if the reconciliation failed.",
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
	_, result, reconcileErr := ibreconcmd.Reconcile(container, dirPath)
	if result == nil {
		return reconcileErr
	}
	if err := cliio.Write(container.Stdout(), format, ibreconcmd.WarningsTable(result.Warnings), result.Warnings); err != nil {
		return err
	}
	if reconcileErr != nil {
		return reconcileErr
	}
	if format != cliio.FormatTable {
		return nil
	}
	return writeSummary(container.Stdout(), result)
}

func writeSummary(writer io.Writer, result *ibreconengine.Result) error {
	_, err := fmt.Fprintf(
		writer,
		"\nrun %s: %d trades, %d dividends, %d interest records, %d warnings\n",
		result.RunID,
		result.Ledger.TradeCount(),
		len(result.Dividends),
		len(result.Interest),
		len(result.Warnings),
	)
	return err
}
