// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibreconledger

import (
	"testing"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()
	buckets := ibrecondata.NewBuckets()
	buckets.Append(
		"A",
		newTrade("1", ibrecondata.PositionTypeLong, ibrecondata.AssetTypeNormal),
		newTrade("2", ibrecondata.PositionTypeShort, ibrecondata.AssetTypeNormal),
		newTrade("3", ibrecondata.PositionTypeLong, ibrecondata.AssetTypeNormal),
	)
	buckets.Append(
		"B",
		newTrade("4", ibrecondata.PositionTypeShort, ibrecondata.AssetTypeDerivative),
		newTrade("5", ibrecondata.PositionTypeLong, ibrecondata.AssetTypeDerivative),
	)
	ledger, err := Build(buckets)
	require.NoError(t, err)
	require.Equal(t, 5, ledger.TradeCount())
	require.Equal(t, []string{"1", "3"}, transactionIDs(ledger.Rows(KindLongNormal)))
	require.Equal(t, []string{"2"}, transactionIDs(ledger.Rows(KindShortNormal)))
	require.Equal(t, []string{"5"}, transactionIDs(ledger.Rows(KindLongDerivative)))
	require.Equal(t, []string{"4"}, transactionIDs(ledger.Rows(KindShortDerivative)))
	require.Equal(t, []string{"A"}, ledger.Buckets(KindLongNormal).IDs())
}

func TestBuildUnclassified(t *testing.T) {
	t.Parallel()
	buckets := ibrecondata.NewBuckets()
	buckets.Append("A", &ibrecondata.Trade{TransactionID: "1"})
	_, err := Build(buckets)
	require.Error(t, err)
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	for _, kind := range AllKinds {
		parsed, err := ParseKind(kind.String())
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}
	_, err := ParseKind("long")
	require.Error(t, err)
}

func newTrade(transactionID string, positionType ibrecondata.PositionType, assetType ibrecondata.AssetType) *ibrecondata.Trade {
	return &ibrecondata.Trade{
		TransactionID: transactionID,
		PositionType:  positionType,
		AssetType:     assetType,
	}
}

func transactionIDs(trades []*ibrecondata.Trade) []string {
	result := make([]string, 0, len(trades))
	for _, trade := range trades {
		result = append(result, trade.TransactionID)
	}
	return result
}
