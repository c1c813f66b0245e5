// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibreconclassify

import (
	"log/slog"
	"testing"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfx"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var tradeDate = xtime.Date{Year: 2023, Month: 3, Day: 1}

func TestPositionType(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		indicator ibrecondata.OpenCloseIndicator
		quantity  int64
		want      ibrecondata.PositionType
	}{
		{ibrecondata.OpenCloseIndicatorOpen, 10, ibrecondata.PositionTypeLong},
		{ibrecondata.OpenCloseIndicatorClose, -10, ibrecondata.PositionTypeLong},
		{ibrecondata.OpenCloseIndicatorOpen, -10, ibrecondata.PositionTypeShort},
		{ibrecondata.OpenCloseIndicatorClose, 10, ibrecondata.PositionTypeShort},
	} {
		trade := &ibrecondata.Trade{OpenCloseIndicator: test.indicator, Quantity: decimal.NewFromInt(test.quantity)}
		require.Equal(t, test.want, PositionType(trade), "%v %d", test.indicator, test.quantity)
	}
}

func TestSplitOpenClose(t *testing.T) {
	t.Parallel()
	// Long 30, then sell 50: close 30 and open a short of 20.
	crossing := &ibrecondata.Trade{
		TransactionID:      "900",
		Quantity:           decimal.NewFromInt(-50),
		OpenCloseIndicator: ibrecondata.OpenCloseIndicatorOpenClose,
		OpenLots: []ibrecondata.OpenLot{
			{TransactionID: "100", Quantity: decimal.NewFromInt(10)},
			{TransactionID: "101", Quantity: decimal.NewFromInt(20)},
		},
	}
	result := SplitOpenClose([]*ibrecondata.Trade{crossing})
	require.Len(t, result, 2)
	require.Equal(t, ibrecondata.OpenCloseIndicatorClose, result[0].OpenCloseIndicator)
	require.True(t, decimal.NewFromInt(-30).Equal(result[0].Quantity))
	require.Len(t, result[0].OpenLots, 2)
	require.Equal(t, ibrecondata.OpenCloseIndicatorOpen, result[1].OpenCloseIndicator)
	require.True(t, decimal.NewFromInt(-20).Equal(result[1].Quantity))
	require.Empty(t, result[1].OpenLots)
	require.Equal(t, "900", result[1].TransactionID)
	require.Equal(t, ibrecondata.PositionTypeLong, PositionType(result[0]))
	require.Equal(t, ibrecondata.PositionTypeShort, PositionType(result[1]))

	// Fully covered by lots: only a close.
	covered := crossing.Clone()
	covered.Quantity = decimal.NewFromInt(-30)
	result = SplitOpenClose([]*ibrecondata.Trade{covered})
	require.Len(t, result, 1)
	require.Equal(t, ibrecondata.OpenCloseIndicatorClose, result[0].OpenCloseIndicator)

	// No lots: no zero-quantity close, only an open of the full quantity.
	uncovered := crossing.Clone()
	uncovered.OpenLots = nil
	result = SplitOpenClose([]*ibrecondata.Trade{uncovered})
	require.Len(t, result, 1)
	require.Equal(t, ibrecondata.OpenCloseIndicatorOpen, result[0].OpenCloseIndicator)
	require.True(t, decimal.NewFromInt(-50).Equal(result[0].Quantity))
	require.Empty(t, result[0].OpenLots)
	require.Equal(t, ibrecondata.PositionTypeShort, PositionType(result[0]))
	require.Equal(t, ibrecondata.OpenCloseIndicatorOpenClose, uncovered.OpenCloseIndicator)
}

func TestClassify(t *testing.T) {
	t.Parallel()
	assetSets, err := NewAssetSets([]string{"STK"}, []string{"OPT", "FUT"})
	require.NoError(t, err)
	table := ibreconfx.NewRateTable()
	require.NoError(t, table.Set(tradeDate, "USD", decimal.RequireFromString("1.25")))
	diagnostics := ibrecondiag.NewDiagnostics(slog.New(slog.DiscardHandler))
	converter := ibreconfx.NewConverter("EUR", table, nil, diagnostics)

	buckets := ibrecondata.NewBuckets()
	buckets.Append("US0000000001", &ibrecondata.Trade{
		TransactionID:      "1",
		AssetCategory:      "STK",
		Currency:           "USD",
		Quantity:           decimal.NewFromInt(10),
		Price:              decimal.NewFromInt(100),
		TradeDate:          tradeDate,
		OpenCloseIndicator: ibrecondata.OpenCloseIndicatorOpen,
	})
	buckets.Append("555", &ibrecondata.Trade{
		TransactionID:      "2",
		AssetCategory:      "OPT",
		Currency:           "EUR",
		Quantity:           decimal.NewFromInt(-1),
		Price:              decimal.NewFromInt(300),
		TradeDate:          tradeDate,
		OpenCloseIndicator: ibrecondata.OpenCloseIndicatorOpen,
	})
	buckets.Append("BOND1", &ibrecondata.Trade{
		TransactionID: "3",
		AssetCategory: "BOND",
		Currency:      "USD",
		TradeDate:     tradeDate,
	})
	classified, err := Classify(buckets, assetSets, converter, diagnostics)
	require.NoError(t, err)
	require.Equal(t, []string{"US0000000001", "555"}, classified.IDs())

	stock := classified.Trades("US0000000001")[0]
	require.Equal(t, ibrecondata.PositionTypeLong, stock.PositionType)
	require.Equal(t, ibrecondata.AssetTypeNormal, stock.AssetType)
	require.True(t, decimal.NewFromInt(80).Equal(stock.PriceInReportingCurrency))
	option := classified.Trades("555")[0]
	require.Equal(t, ibrecondata.PositionTypeShort, option.PositionType)
	require.Equal(t, ibrecondata.AssetTypeDerivative, option.AssetType)
	require.True(t, decimal.NewFromInt(300).Equal(option.PriceInReportingCurrency))

	warnings := diagnostics.Warnings()
	require.Len(t, warnings, 1)
	require.Equal(t, ibrecondiag.WarningKindUnsupportedAssetCategory, warnings[0].Kind)
	require.Equal(t, "BOND1", warnings[0].SecurityID)
}

func TestClassifyMissingRate(t *testing.T) {
	t.Parallel()
	assetSets, err := NewAssetSets([]string{"STK"}, nil)
	require.NoError(t, err)
	diagnostics := ibrecondiag.NewDiagnostics(slog.New(slog.DiscardHandler))
	converter := ibreconfx.NewConverter("EUR", ibreconfx.NewRateTable(), nil, diagnostics)
	buckets := ibrecondata.NewBuckets()
	buckets.Append("US0000000001", &ibrecondata.Trade{
		TransactionID: "42",
		AssetCategory: "STK",
		Currency:      "USD",
		Price:         decimal.NewFromInt(1),
		TradeDate:     tradeDate,
	})
	_, err = Classify(buckets, assetSets, converter, diagnostics)
	failure, ok := ibrecondiag.AsReconciliationFailure(err)
	require.True(t, ok)
	require.Equal(t, "US0000000001", failure.SecurityID)
	require.Equal(t, "42", failure.TransactionID)
	require.Equal(t, tradeDate, failure.Date)
}

func TestNewAssetSetsOverlap(t *testing.T) {
	t.Parallel()
	_, err := NewAssetSets([]string{"STK", "OPT"}, []string{"OPT"})
	require.Error(t, err)
}
