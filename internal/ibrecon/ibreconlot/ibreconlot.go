// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconlot expands closing trades into the opening lots they consumed.
package ibreconlot

import (
	"fmt"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
)

// Attribute returns, for every closing trade of the bucket dated in year,
// one copy of each opening trade it consumed with the quantity set to the
// consumed lot quantity, followed by the closing trade itself.
//
// A lot whose opening trade is not in the bucket is a
// *ibrecondiag.ReconciliationFailure.
func Attribute(bucketID string, trades []*ibrecondata.Trade, year int) ([]*ibrecondata.Trade, error) {
	openingsByTransactionID := make(map[string]*ibrecondata.Trade)
	for _, trade := range trades {
		if trade.OpenCloseIndicator != ibrecondata.OpenCloseIndicatorOpen {
			continue
		}
		if _, ok := openingsByTransactionID[trade.TransactionID]; !ok {
			openingsByTransactionID[trade.TransactionID] = trade
		}
	}
	var result []*ibrecondata.Trade
	for _, trade := range trades {
		if !trade.IsClose() || trade.TradeDate.Year != year {
			continue
		}
		for _, openLot := range trade.OpenLots {
			opening, ok := openingsByTransactionID[openLot.TransactionID]
			if !ok {
				return nil, &ibrecondiag.ReconciliationFailure{
					Stage:         ibrecondiag.StageLotAttribution,
					Reason:        fmt.Sprintf("closing trade references opening transaction %s which is not in the input", openLot.TransactionID),
					Date:          trade.TradeDate,
					SecurityID:    bucketID,
					TransactionID: trade.TransactionID,
				}
			}
			lot := opening.Clone()
			lot.Quantity = openLot.Quantity
			result = append(result, lot)
		}
		result = append(result, trade.Clone())
	}
	return result, nil
}
