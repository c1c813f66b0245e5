// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconsplit restates trades dated before a stock split in
// post-split units.
package ibreconsplit

import (
	"regexp"
	"sort"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// splitDescriptionRegexp matches corporate action descriptions such as
// "ACME(US0000000001) SPLIT 4 FOR 1 (ACME, ACME CORP, US0000000001)".
var splitDescriptionRegexp = regexp.MustCompile(`SPLIT\s+([0-9]+(?:\.[0-9]+)?)\s+FOR\s+([0-9]+(?:\.[0-9]+)?)\s*\(`)

// ParseSplitDescription extracts the share counts of a split from a
// corporate action description. It returns false for any other action.
func ParseSplitDescription(description string) (newShares decimal.Decimal, oldShares decimal.Decimal, ok bool) {
	matches := splitDescriptionRegexp.FindStringSubmatch(description)
	if matches == nil {
		return decimal.Zero, decimal.Zero, false
	}
	newShares, err := decimal.NewFromString(matches[1])
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	oldShares, err = decimal.NewFromString(matches[2])
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	// A zero count or a 1 FOR 1 action does not change quantities.
	if !newShares.IsPositive() || !oldShares.IsPositive() || newShares.Equal(oldShares) {
		return decimal.Zero, decimal.Zero, false
	}
	return newShares, oldShares, true
}

// SplitRegistry holds the split events of all input statements, keyed by
// symbol and conid. It is built during ingestion and read-only afterwards.
type SplitRegistry struct {
	splits map[string][]ibrecondata.SplitEvent
}

// NewSplitRegistry returns an empty SplitRegistry.
func NewSplitRegistry() *SplitRegistry {
	return &SplitRegistry{
		splits: make(map[string][]ibrecondata.SplitEvent),
	}
}

// Add registers a split event. The same split reported by several
// statements is registered once; Add returns false for the duplicate.
func (s *SplitRegistry) Add(splitEvent ibrecondata.SplitEvent) bool {
	key := splitEvent.Keys.SplitKey()
	if containsSplit(s.splits[key], splitEvent) {
		return false
	}
	splits := append(s.splits[key], splitEvent)
	sort.SliceStable(splits, func(i, j int) bool {
		return splits[i].EffectiveDate.Before(splits[j].EffectiveDate)
	})
	s.splits[key] = splits
	return true
}

// Splits returns the splits for the security in chronological order.
func (s *SplitRegistry) Splits(keys ibrecondata.SecurityKeys) []ibrecondata.SplitEvent {
	return s.splits[keys.SplitKey()]
}

// Len returns the number of registered splits.
func (s *SplitRegistry) Len() int {
	var count int
	for _, splits := range s.splits {
		count += len(splits)
	}
	return count
}

// Adjust returns buckets in which every trade dated strictly before a split
// of its security has its quantity multiplied and its price divided by the
// split multiplier, compounding across splits in chronological order.
//
// The splits of a security are those registered under the keys of any trade
// in its bucket, so trades reported under an earlier symbol are restated
// together with the rest.
//
// Open-lot quantities are adjusted as of the lot's own opening date. When a
// lot does not carry a date, the date of the opening trade with the lot's
// transaction id in the same bucket is used, falling back to the closing
// trade's date.
func Adjust(buckets *ibrecondata.Buckets, registry *SplitRegistry) *ibrecondata.Buckets {
	result := ibrecondata.NewBuckets()
	for _, id := range buckets.IDs() {
		trades := buckets.Trades(id)
		openDates := openDatesByTransactionID(trades)
		splits := bucketSplits(registry, trades)
		for _, trade := range trades {
			if len(splits) == 0 {
				result.Append(id, trade)
				continue
			}
			adjusted := trade.Clone()
			adjusted.Quantity, adjusted.Price = apply(splits, trade.TradeDate, trade.Quantity, trade.Price)
			for i, openLot := range adjusted.OpenLots {
				lotDate := openLot.Date
				if lotDate.IsZero() {
					lotDate = trade.TradeDate
					if openDate, ok := openDates[openLot.TransactionID]; ok {
						lotDate = openDate
					}
				}
				adjusted.OpenLots[i].Quantity, _ = apply(splits, lotDate, openLot.Quantity, decimal.Zero)
			}
			result.Append(id, adjusted)
		}
	}
	return result
}

// *** PRIVATE ***

// apply restates quantity and price for every split after date. Quantity is
// multiplied by New and divided by Old, which keeps 1 FOR n splits exact
// where the multiplier itself is not representable.
func apply(splits []ibrecondata.SplitEvent, date xtime.Date, quantity decimal.Decimal, price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	for _, split := range splits {
		if !date.Before(split.EffectiveDate) {
			continue
		}
		quantity = quantity.Mul(split.New).Div(split.Old)
		price = price.Mul(split.Old).Div(split.New)
	}
	return quantity, price
}

// bucketSplits returns the union of the splits registered for the trades of
// one bucket, in chronological order, with each (date, multiplier) once.
func bucketSplits(registry *SplitRegistry, trades []*ibrecondata.Trade) []ibrecondata.SplitEvent {
	var splits []ibrecondata.SplitEvent
	seenKeys := make(map[string]struct{})
	for _, trade := range trades {
		key := trade.Keys.SplitKey()
		if _, ok := seenKeys[key]; ok {
			continue
		}
		seenKeys[key] = struct{}{}
		for _, split := range registry.Splits(trade.Keys) {
			if !containsSplit(splits, split) {
				splits = append(splits, split)
			}
		}
	}
	sort.SliceStable(splits, func(i, j int) bool {
		return splits[i].EffectiveDate.Before(splits[j].EffectiveDate)
	})
	return splits
}

func containsSplit(splits []ibrecondata.SplitEvent, split ibrecondata.SplitEvent) bool {
	for _, existing := range splits {
		if existing.EffectiveDate == split.EffectiveDate && existing.Multiplier().Equal(split.Multiplier()) {
			return true
		}
	}
	return false
}

func openDatesByTransactionID(trades []*ibrecondata.Trade) map[string]xtime.Date {
	openDates := make(map[string]xtime.Date)
	for _, trade := range trades {
		if trade.OpenCloseIndicator != ibrecondata.OpenCloseIndicatorOpen {
			continue
		}
		if _, ok := openDates[trade.TransactionID]; !ok {
			openDates[trade.TransactionID] = trade.TradeDate
		}
	}
	return openDates
}
