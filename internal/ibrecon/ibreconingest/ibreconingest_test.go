// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibreconingest

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var ignoredAssets = []string{"CASH", "CMDTY"}

func TestReadDir(t *testing.T) {
	t.Parallel()
	statements, err := ReadDir(slog.New(slog.DiscardHandler), filepath.Join("testdata", "statements"), ignoredAssets)
	require.NoError(t, err)
	require.Len(t, statements.Files, 2)
	require.Equal(t, filepath.Join("testdata", "statements", "a-2023.xml"), statements.Files[0].Path)
	require.Equal(t, filepath.Join("testdata", "statements", "b-2024.xml"), statements.Files[1].Path)
	// The same split is in both files.
	require.Equal(t, 1, statements.Splits.Len())
	splits := statements.Splits.Splits(ibrecondata.SecurityKeys{Symbol: "ACME", Conid: "1001"})
	require.Len(t, splits, 1)
	require.Equal(t, xtime.Date{Year: 2023, Month: 6, Day: 1}, splits[0].EffectiveDate)
	require.True(t, decimal.NewFromInt(2).Equal(splits[0].Multiplier()))
	require.Equal(t, map[string]string{"1001": "ACME CORPORATION"}, statements.SecurityNames)

	first := statements.Files[0]
	require.Len(t, first.Trades, 2)
	closing := first.Trades[1]
	require.Equal(t, "777", closing.TransactionID)
	require.Equal(t, "9002", closing.OrderID)
	require.Equal(t, ibrecondata.OpenCloseIndicatorClose, closing.OpenCloseIndicator)
	require.Equal(t, xtime.Date{Year: 2023, Month: 12, Day: 1}, closing.TradeDate)
	require.Equal(t, "150000", closing.TradeTime)
	require.Len(t, closing.OpenLots, 1)
	require.Equal(t, "501", closing.OpenLots[0].TransactionID)
	require.True(t, decimal.NewFromInt(100).Equal(closing.OpenLots[0].Quantity))
	require.Equal(t, xtime.Date{Year: 2023, Month: 1, Day: 5}, closing.OpenLots[0].Date)
	require.Empty(t, cmp.Diff(
		ibrecondata.SecurityKeys{
			ISIN:       "US0000000001",
			CUSIP:      "000000001",
			SecurityID: "US0000000001",
			Conid:      "1001",
			Symbol:     "ACME",
		},
		closing.Keys,
	))
	require.Len(t, first.CashFlowEvents, 2)
	require.Equal(t, ibrecondata.CashFlowKindDividend, first.CashFlowEvents[0].Kind)
	require.Equal(t, ibrecondata.CashFlowKindWithholdingTax, first.CashFlowEvents[1].Kind)
	require.True(t, decimal.RequireFromString("-7.5").Equal(first.CashFlowEvents[1].Amount))
	require.Equal(t, xtime.Date{Year: 2023, Month: 3, Day: 15}, first.CashFlowEvents[1].Date)

	second := statements.Files[1]
	// The CASH trade is ignored and the lot after it has no trade.
	require.Len(t, second.Trades, 1)
	option := second.Trades[0]
	require.Equal(t, "810", option.TransactionID)
	require.Equal(t, ibrecondata.OpenCloseIndicatorOpenClose, option.OpenCloseIndicator)
	// Exercised: close price times the multiplier.
	require.True(t, decimal.NewFromInt(150).Equal(option.Price), option.Price.String())
	require.Equal(t, "000000", option.TradeTime)
	require.Equal(t, xtime.Date{Year: 2024, Month: 1, Day: 19}, option.TradeDate)
	require.Len(t, option.OpenLots, 1)
	require.True(t, decimal.RequireFromString("0.75").Equal(option.OpenLots[0].Quantity))
	require.Len(t, second.CashFlowEvents, 1)
	require.Equal(t, ibrecondata.CashFlowKindBrokerInterest, second.CashFlowEvents[0].Kind)

	require.Len(t, statements.Warnings, 1)
	require.Equal(t, ibrecondiag.WarningKindOrphanLot, statements.Warnings[0].Kind)
	require.Equal(t, "501", statements.Warnings[0].TransactionID)
}

func TestReadDirMissing(t *testing.T) {
	t.Parallel()
	_, err := ReadDir(slog.New(slog.DiscardHandler), filepath.Join(t.TempDir(), "statements"), ignoredAssets)
	require.ErrorContains(t, err, "ibrecon download")
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	_, err := Parse("bad.xml", []byte(`<FlexQueryResponse><FlexStatements><FlexStatement><Trades>
<Trade assetCategory="STK" symbol="X" dateTime="20230101;000000" quantity="abc" tradePrice="1" transactionID="1" openCloseIndicator="O" />
</Trades></FlexStatement></FlexStatements></FlexQueryResponse>`), ignoredAssets)
	require.ErrorContains(t, err, "bad.xml")
	require.ErrorContains(t, err, "trade 1")
}
