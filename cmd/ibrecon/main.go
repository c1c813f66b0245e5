// Copyright 2026 Peter Edge
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/command/check"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/command/config"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/command/data"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/command/dividends"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/command/download"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/command/interest"
	"github.com/bufdev/ibrecon/cmd/ibrecon/internal/command/trades"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("ibrecon"))
}

func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:                 name,
		Short:               "Reconcile Interactive Brokers trades and cash flows for tax reporting",
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			config.NewCommand("config", builder),
			download.NewCommand("download", builder),
			trades.NewCommand("trades", builder),
			dividends.NewCommand("dividends", builder),
			interest.NewCommand("interest", builder),
			check.NewCommand("check", builder),
			data.NewCommand("data", builder),
		},
	}
}
