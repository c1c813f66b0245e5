// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibreconsplit

import (
	"testing"
	"time"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var acmeKeys = ibrecondata.SecurityKeys{ISIN: "US0000000001", Conid: "1001", Symbol: "ACME"}

func TestParseSplitDescription(t *testing.T) {
	t.Parallel()
	newShares, oldShares, ok := ParseSplitDescription("ACME(US0000000001) SPLIT 4 FOR 1 (ACME, ACME CORP, US0000000001)")
	require.True(t, ok)
	require.True(t, decimal.NewFromInt(4).Equal(newShares))
	require.True(t, decimal.NewFromInt(1).Equal(oldShares))

	newShares, oldShares, ok = ParseSplitDescription("XYZ(US0000000009) SPLIT 1 FOR 10 (XYZ, XYZ INC, US0000000009)")
	require.True(t, ok)
	require.True(t, decimal.RequireFromString("0.1").Equal(newShares.Div(oldShares)))

	_, _, ok = ParseSplitDescription("ACME(US0000000001) CASH DIVIDEND USD 0.50 PER SHARE")
	require.False(t, ok)
	_, _, ok = ParseSplitDescription("ACME(US0000000001) SPLIT 1 FOR 1 (ACME)")
	require.False(t, ok)
}

func TestSplitRegistryIdempotent(t *testing.T) {
	t.Parallel()
	registry := NewSplitRegistry()
	split := newSplit(2023, 6, 1, 2, 1)
	require.True(t, registry.Add(split))
	require.False(t, registry.Add(split))
	// 4 FOR 2 is the same split.
	require.False(t, registry.Add(newSplit(2023, 6, 1, 4, 2)))
	require.True(t, registry.Add(newSplit(2022, 3, 1, 3, 1)))
	require.Equal(t, 2, registry.Len())
	splits := registry.Splits(acmeKeys)
	require.Equal(t, xtime.Date{Year: 2022, Month: 3, Day: 1}, splits[0].EffectiveDate)
}

func TestAdjustConservesValue(t *testing.T) {
	t.Parallel()
	registry := NewSplitRegistry()
	registry.Add(newSplit(2023, 6, 1, 3, 1))
	registry.Add(newSplit(2023, 9, 1, 1, 2))
	original := []*ibrecondata.Trade{
		newTrade("1", 2023, 1, 5, "100", "10"),
		newTrade("2", 2023, 7, 5, "30", "7"),
		newTrade("3", 2023, 10, 5, "-150", "12"),
	}
	buckets := ibrecondata.NewBuckets()
	buckets.Append("US0000000001", original...)
	adjusted := Adjust(buckets, registry).Trades("US0000000001")

	// Older than both splits: 100 * 3 / 2.
	require.True(t, decimal.NewFromInt(150).Equal(adjusted[0].Quantity))
	require.True(t, decimal.RequireFromString("15").Sub(adjusted[1].Quantity).IsZero())
	require.True(t, decimal.NewFromInt(-150).Equal(adjusted[2].Quantity))
	tolerance := decimal.RequireFromString("0.000000001")
	for i, trade := range adjusted {
		before := original[i].Quantity.Mul(original[i].Price)
		after := trade.Quantity.Mul(trade.Price)
		require.True(t, before.Sub(after).Abs().LessThan(tolerance), "trade %d: %s != %s", i, before, after)
	}
	// The input is not modified.
	require.True(t, decimal.NewFromInt(100).Equal(original[0].Quantity))
}

func TestAdjustOpenLotsUseLotDate(t *testing.T) {
	t.Parallel()
	registry := NewSplitRegistry()
	registry.Add(newSplit(2023, 6, 1, 2, 1))
	open := newTrade("501", 2023, 1, 5, "100", "10")
	open.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorOpen
	openAfterSplit := newTrade("502", 2023, 7, 1, "50", "6")
	openAfterSplit.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorOpen
	closing := newTrade("777", 2023, 12, 1, "-250", "25")
	closing.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorClose
	closing.OpenLots = []ibrecondata.OpenLot{
		{TransactionID: "501", Quantity: decimal.NewFromInt(100), Date: xtime.Date{Year: 2023, Month: 1, Day: 5}},
		// No date on the lot: the opening trade's date is used.
		{TransactionID: "502", Quantity: decimal.NewFromInt(50)},
	}
	buckets := ibrecondata.NewBuckets()
	buckets.Append("US0000000001", open, openAfterSplit, closing)
	adjusted := Adjust(buckets, registry).Trades("US0000000001")

	require.True(t, decimal.NewFromInt(200).Equal(adjusted[0].Quantity))
	require.True(t, decimal.NewFromInt(5).Equal(adjusted[0].Price))
	require.True(t, decimal.NewFromInt(-250).Equal(adjusted[2].Quantity))
	require.True(t, decimal.NewFromInt(200).Equal(adjusted[2].OpenLots[0].Quantity))
	require.True(t, decimal.NewFromInt(50).Equal(adjusted[2].OpenLots[1].Quantity))
}

func TestAdjustUsesSplitsOfWholeBucket(t *testing.T) {
	t.Parallel()
	oldKeys := ibrecondata.SecurityKeys{ISIN: "US0000000001", Conid: "1001", Symbol: "ACMEOLD"}
	registry := NewSplitRegistry()
	registry.Add(newSplit(2023, 6, 1, 2, 1))
	// The same split also reported under the earlier symbol is applied once.
	renamedSplit := newSplit(2023, 6, 1, 2, 1)
	renamedSplit.Keys = oldKeys
	registry.Add(renamedSplit)
	open := newTrade("501", 2023, 1, 5, "100", "10")
	open.Keys = oldKeys
	open.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorOpen
	closing := newTrade("777", 2023, 12, 1, "-200", "25")
	closing.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorClose
	closing.OpenLots = []ibrecondata.OpenLot{
		{TransactionID: "501", Quantity: decimal.NewFromInt(100), Date: xtime.Date{Year: 2023, Month: 1, Day: 5}},
	}
	buckets := ibrecondata.NewBuckets()
	buckets.Append("US0000000001", open, closing)
	adjusted := Adjust(buckets, registry).Trades("US0000000001")

	require.Len(t, adjusted, 2)
	require.True(t, decimal.NewFromInt(200).Equal(adjusted[0].Quantity))
	require.True(t, decimal.NewFromInt(5).Equal(adjusted[0].Price))
	require.True(t, decimal.NewFromInt(-200).Equal(adjusted[1].Quantity))
	require.True(t, decimal.NewFromInt(25).Equal(adjusted[1].Price))
	require.True(t, decimal.NewFromInt(200).Equal(adjusted[1].OpenLots[0].Quantity))
	// The input trades are not modified.
	require.True(t, decimal.NewFromInt(100).Equal(open.Quantity))
	require.Equal(t, "ACMEOLD", adjusted[0].Keys.Symbol)
}

func newSplit(year int, month int, day int, newShares int64, oldShares int64) ibrecondata.SplitEvent {
	return ibrecondata.SplitEvent{
		Keys:          acmeKeys,
		EffectiveDate: xtime.Date{Year: year, Month: time.Month(month), Day: day},
		New:           decimal.NewFromInt(newShares),
		Old:           decimal.NewFromInt(oldShares),
	}
}

func newTrade(transactionID string, year int, month int, day int, quantity string, price string) *ibrecondata.Trade {
	return &ibrecondata.Trade{
		Keys:          acmeKeys,
		Currency:      "USD",
		AssetCategory: "STK",
		TransactionID: transactionID,
		TradeDate:     xtime.Date{Year: year, Month: time.Month(month), Day: day},
		Quantity:      decimal.RequireFromString(quantity),
		Price:         decimal.RequireFromString(price),
	}
}
