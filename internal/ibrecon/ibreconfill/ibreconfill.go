// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconfill merges the partial fills of one order.
package ibreconfill

import (
	"slices"
	"strings"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/shopspring/decimal"
)

type fillKey struct {
	orderID   string
	indicator ibrecondata.OpenCloseIndicator
}

// Merge merges trades with the same order id and open/close indicator into
// one trade with the summed quantity and the quantity-weighted average price
// and reporting-currency price. The first fill of each group supplies the
// remaining fields. The result is sorted by trade date and time, then by
// input sequence.
func Merge(trades []*ibrecondata.Trade) []*ibrecondata.Trade {
	var keys []fillKey
	groups := make(map[fillKey][]*ibrecondata.Trade)
	for _, trade := range trades {
		key := fillKey{orderID: trade.OrderID, indicator: trade.OpenCloseIndicator}
		if key.orderID == "" {
			// No order id, nothing to merge with.
			key.orderID = "transaction:" + trade.TransactionID
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], trade)
	}
	result := make([]*ibrecondata.Trade, 0, len(keys))
	for _, key := range keys {
		result = append(result, mergeGroup(groups[key]))
	}
	slices.SortStableFunc(result, func(a *ibrecondata.Trade, b *ibrecondata.Trade) int {
		if c := a.TradeDate.Compare(b.TradeDate); c != 0 {
			return c
		}
		if c := strings.Compare(a.TradeTime, b.TradeTime); c != 0 {
			return c
		}
		return a.Sequence - b.Sequence
	})
	return result
}

// WeightedAverage returns the quantity-weighted average of values. If the
// quantities sum to zero, the first value is returned.
func WeightedAverage(quantities []decimal.Decimal, values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	quantitySum := decimal.Zero
	weightedSum := decimal.Zero
	for i, quantity := range quantities {
		quantitySum = quantitySum.Add(quantity)
		weightedSum = weightedSum.Add(quantity.Mul(values[i]))
	}
	if quantitySum.IsZero() {
		return values[0]
	}
	return weightedSum.Div(quantitySum)
}

func mergeGroup(group []*ibrecondata.Trade) *ibrecondata.Trade {
	merged := group[0].Clone()
	if len(group) == 1 {
		return merged
	}
	quantities := make([]decimal.Decimal, len(group))
	prices := make([]decimal.Decimal, len(group))
	reportingPrices := make([]decimal.Decimal, len(group))
	quantitySum := decimal.Zero
	for i, trade := range group {
		quantities[i] = trade.Quantity
		prices[i] = trade.Price
		reportingPrices[i] = trade.PriceInReportingCurrency
		quantitySum = quantitySum.Add(trade.Quantity)
	}
	merged.Quantity = quantitySum
	merged.Price = WeightedAverage(quantities, prices)
	merged.PriceInReportingCurrency = WeightedAverage(quantities, reportingPrices)
	merged.OpenLots = nil
	for _, trade := range group {
		for _, openLot := range trade.OpenLots {
			merged.AddOpenLot(openLot)
		}
	}
	return merged
}
