// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package configvalidate implements the "config validate" command.
package configvalidate

import (
	"context"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/ibreconcmd"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconconfig"
	"github.com/spf13/pflag"
)

// NewCommand returns a new config validate command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Validate the configuration file",
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
	Dir string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ibreconcmd.DirFlagName, ".", ibreconcmd.DirFlagUsage)
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	dirPath, err := ibreconcmd.DirPath(flags.Dir)
	if err != nil {
		return err
	}
	config, err := ibreconconfig.ReadConfig(dirPath)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(
		container.Stdout(),
		"valid: report year %d, reporting currency %s, exchange rates from %s\n",
		config.ReportYear,
		config.ReportingCurrency,
		config.FXProvider,
	)
	return err
}
