// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconclassify labels trades long or short and normal or
// derivative, and prices them in the reporting currency.
package ibreconclassify

import (
	"fmt"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondiag"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconfx"
)

// AssetSets holds the asset categories of each asset type.
type AssetSets struct {
	normal     map[string]struct{}
	derivative map[string]struct{}
}

// NewAssetSets returns AssetSets. A category may not be in both sets.
func NewAssetSets(normal []string, derivative []string) (AssetSets, error) {
	assetSets := AssetSets{
		normal:     make(map[string]struct{}, len(normal)),
		derivative: make(map[string]struct{}, len(derivative)),
	}
	for _, category := range normal {
		assetSets.normal[category] = struct{}{}
	}
	for _, category := range derivative {
		if _, ok := assetSets.normal[category]; ok {
			return AssetSets{}, fmt.Errorf("asset category %q is both normal and derivative", category)
		}
		assetSets.derivative[category] = struct{}{}
	}
	return assetSets, nil
}

// AssetType returns the asset type of a category, or false if the category
// is in neither set.
func (a AssetSets) AssetType(category string) (ibrecondata.AssetType, bool) {
	if _, ok := a.normal[category]; ok {
		return ibrecondata.AssetTypeNormal, true
	}
	if _, ok := a.derivative[category]; ok {
		return ibrecondata.AssetTypeDerivative, true
	}
	return ibrecondata.AssetTypeUnspecified, false
}

// SplitOpenClose replaces each trade that crosses through zero with a
// closing trade sized to the lots it consumed and an opening trade for the
// remainder. Both keep the original transaction and order ids. A crossing
// trade whose lots account for its whole quantity only closes, and one
// without any lots only opens.
func SplitOpenClose(trades []*ibrecondata.Trade) []*ibrecondata.Trade {
	result := make([]*ibrecondata.Trade, 0, len(trades))
	for _, trade := range trades {
		if trade.OpenCloseIndicator != ibrecondata.OpenCloseIndicatorOpenClose {
			result = append(result, trade)
			continue
		}
		openSum := trade.OpenLotQuantity()
		if openSum.IsZero() {
			openTrade := trade.Clone()
			openTrade.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorOpen
			openTrade.OpenLots = nil
			result = append(result, openTrade)
			continue
		}
		if trade.Quantity.Abs().Equal(openSum.Abs()) {
			closeTrade := trade.Clone()
			closeTrade.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorClose
			result = append(result, closeTrade)
			continue
		}
		closeTrade := trade.Clone()
		closeTrade.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorClose
		closeTrade.Quantity = openSum.Neg()
		openTrade := trade.Clone()
		openTrade.OpenCloseIndicator = ibrecondata.OpenCloseIndicatorOpen
		openTrade.Quantity = trade.Quantity.Sub(closeTrade.Quantity)
		openTrade.OpenLots = nil
		result = append(result, closeTrade, openTrade)
	}
	return result
}

// PositionType returns long for an opening purchase or a closing sale and
// short otherwise.
func PositionType(trade *ibrecondata.Trade) ibrecondata.PositionType {
	switch {
	case trade.OpenCloseIndicator == ibrecondata.OpenCloseIndicatorOpen && trade.Quantity.IsPositive(),
		trade.OpenCloseIndicator == ibrecondata.OpenCloseIndicatorClose && trade.Quantity.IsNegative():
		return ibrecondata.PositionTypeLong
	default:
		return ibrecondata.PositionTypeShort
	}
}

// Classify splits crossing trades, then sets the position type, asset type
// and reporting-currency price of every trade.
//
// A security with any trade in an unsupported asset category is left out of
// the result entirely, with a warning. A missing exchange rate stops
// classification with a *ibrecondiag.ReconciliationFailure.
func Classify(
	buckets *ibrecondata.Buckets,
	assetSets AssetSets,
	converter *ibreconfx.Converter,
	diagnostics *ibrecondiag.Diagnostics,
) (*ibrecondata.Buckets, error) {
	result := ibrecondata.NewBuckets()
	for _, id := range buckets.IDs() {
		trades := buckets.Trades(id)
		if category, ok := unsupportedCategory(trades, assetSets); ok {
			diagnostics.Warn(ibrecondiag.Warning{
				Kind:       ibrecondiag.WarningKindUnsupportedAssetCategory,
				Message:    fmt.Sprintf("unsupported asset category %q, security excluded and must be reported manually", category),
				SecurityID: id,
			})
			continue
		}
		for _, trade := range SplitOpenClose(trades) {
			classified := trade.Clone()
			priceInReportingCurrency, err := converter.Convert(trade.TradeDate, trade.Currency, trade.Price)
			if err != nil {
				return nil, ibrecondiag.WithRecord(err, id, trade.TransactionID)
			}
			classified.PriceInReportingCurrency = priceInReportingCurrency
			classified.PositionType = PositionType(trade)
			classified.AssetType, _ = assetSets.AssetType(trade.AssetCategory)
			result.Append(id, classified)
		}
	}
	return result, nil
}

// *** PRIVATE ***

func unsupportedCategory(trades []*ibrecondata.Trade, assetSets AssetSets) (string, bool) {
	for _, trade := range trades {
		if _, ok := assetSets.AssetType(trade.AssetCategory); !ok {
			return trade.AssetCategory, true
		}
	}
	return "", false
}
