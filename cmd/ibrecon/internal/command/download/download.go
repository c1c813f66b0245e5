// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package download implements the "download" command.
package download

import (
	"context"
	"fmt"
	"time"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/ibreconcmd"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconconfig"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/spf13/pflag"
)

const (
	fromFlagName      = "from"
	toFlagName        = "to"
	ratesOnlyFlagName = "rates-only"
)

// NewCommand returns a new download command that downloads a statement and the exchange rates it needs.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Download an IBKR Flex Query statement and the exchange rates it needs",
		Long: `Downloads the configured Flex Query for the date range into the statements
directory, then fetches any missing daily exchange rates for all statements.

The date range defaults to the configured report year, ending no later than today.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	Dir string
	// From and To are YYYY-MM-DD, inclusive.
	From string
	To   string
	// RatesOnly skips the statement download.
	RatesOnly bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ibreconcmd.DirFlagName, ".", ibreconcmd.DirFlagUsage)
	flagSet.StringVar(&f.From, fromFlagName, "", "The first statement date as YYYY-MM-DD (defaults to the start of the report year)")
	flagSet.StringVar(&f.To, toFlagName, "", "The last statement date as YYYY-MM-DD (defaults to the end of the report year)")
	flagSet.BoolVar(&f.RatesOnly, ratesOnlyFlagName, false, "Only fetch missing exchange rates for the statements already downloaded")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	dirPath, err := ibreconcmd.DirPath(flags.Dir)
	if err != nil {
		return err
	}
	config, err := ibreconconfig.ReadConfig(dirPath)
	if err != nil {
		return err
	}
	downloader := ibreconcmd.NewDownloader(container, dirPath, config)
	logger := container.Logger()
	if !flags.RatesOnly {
		fromDate, toDate, err := dateRange(config.ReportYear, flags.From, flags.To, xtime.TimeToDate(time.Now()))
		if err != nil {
			return err
		}
		ibkrToken, err := ibreconcmd.IBKRToken(container, dirPath)
		if err != nil {
			return err
		}
		filePath, err := downloader.DownloadStatement(ctx, ibkrToken, fromDate, toDate)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(container.Stdout(), "%s\n", filePath); err != nil {
			return err
		}
	}
	added, err := downloader.UpdateRates(ctx)
	if err != nil {
		return err
	}
	logger.Info("exchange rates updated", "added", added)
	return nil
}

func dateRange(reportYear int, from string, to string, today xtime.Date) (xtime.Date, xtime.Date, error) {
	fromDate := xtime.Date{Year: reportYear, Month: time.January, Day: 1}
	toDate := xtime.Date{Year: reportYear, Month: time.December, Day: 31}
	if toDate.After(today) {
		toDate = today
	}
	var err error
	if from != "" {
		fromDate, err = xtime.ParseDate(from)
		if err != nil {
			return xtime.Date{}, xtime.Date{}, appcmd.NewInvalidArgumentErrorf("--%s: %v", fromFlagName, err)
		}
	}
	if to != "" {
		toDate, err = xtime.ParseDate(to)
		if err != nil {
			return xtime.Date{}, xtime.Date{}, appcmd.NewInvalidArgumentErrorf("--%s: %v", toFlagName, err)
		}
	}
	if toDate.Before(fromDate) {
		return xtime.Date{}, xtime.Date{}, appcmd.NewInvalidArgumentErrorf("--%s %s is before --%s %s", toFlagName, toDate, fromFlagName, fromDate)
	}
	return fromDate, toDate, nil
}
