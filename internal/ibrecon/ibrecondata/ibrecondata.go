// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibrecondata defines the records that flow through reconciliation.
//
// Trades and cash-flow events are created once from parsed statements. Later
// stages annotate, split, copy and group them, but a stage never mutates a
// record it received; it clones the record first.
package ibrecondata

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// OpenCloseIndicator says whether a trade opens or closes a position.
type OpenCloseIndicator int

const (
	// OpenCloseIndicatorUnspecified is an execution without an indicator.
	OpenCloseIndicatorUnspecified OpenCloseIndicator = iota
	// OpenCloseIndicatorOpen opens or increases a position.
	OpenCloseIndicatorOpen
	// OpenCloseIndicatorClose closes or reduces a position.
	OpenCloseIndicatorClose
	// OpenCloseIndicatorOpenClose crosses through zero: it closes the existing
	// position and opens one on the other side.
	OpenCloseIndicatorOpenClose
)

// ParseOpenCloseIndicator parses the IBKR openCloseIndicator attribute.
func ParseOpenCloseIndicator(s string) (OpenCloseIndicator, error) {
	switch strings.TrimSpace(s) {
	case "":
		return OpenCloseIndicatorUnspecified, nil
	case "O":
		return OpenCloseIndicatorOpen, nil
	case "C":
		return OpenCloseIndicatorClose, nil
	case "C;O", "O;C":
		return OpenCloseIndicatorOpenClose, nil
	default:
		return 0, fmt.Errorf("unknown open/close indicator %q", s)
	}
}

// String implements fmt.Stringer.
func (o OpenCloseIndicator) String() string {
	switch o {
	case OpenCloseIndicatorOpen:
		return "O"
	case OpenCloseIndicatorClose:
		return "C"
	case OpenCloseIndicatorOpenClose:
		return "C;O"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o OpenCloseIndicator) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// PositionType is the side of the position a trade belongs to.
type PositionType int

const (
	// PositionTypeUnspecified is the zero value before classification.
	PositionTypeUnspecified PositionType = iota
	// PositionTypeLong is a position opened by buying.
	PositionTypeLong
	// PositionTypeShort is a position opened by selling.
	PositionTypeShort
)

// String implements fmt.Stringer.
func (p PositionType) String() string {
	switch p {
	case PositionTypeLong:
		return "long"
	case PositionTypeShort:
		return "short"
	default:
		return "unspecified"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p PositionType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// AssetType separates normal securities from derivatives.
type AssetType int

const (
	// AssetTypeUnspecified is the zero value before classification.
	AssetTypeUnspecified AssetType = iota
	// AssetTypeNormal is a share or fund unit.
	AssetTypeNormal
	// AssetTypeDerivative is an option, future, CFD or warrant.
	AssetTypeDerivative
)

// String implements fmt.Stringer.
func (a AssetType) String() string {
	switch a {
	case AssetTypeNormal:
		return "normal"
	case AssetTypeDerivative:
		return "derivative"
	default:
		return "unspecified"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a AssetType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// OpenLot is the part of an opening transaction consumed by a closing trade.
type OpenLot struct {
	// TransactionID is the transaction id of the opening trade.
	TransactionID string `json:"transaction_id"`
	// Quantity is signed like the opening trade.
	Quantity decimal.Decimal `json:"quantity"`
	// Date is the opening trade's date, zero if the statement did not carry it.
	Date xtime.Date `json:"date"`
}

// Trade is one execution, or one synthetic leg derived from an execution.
type Trade struct {
	Keys          SecurityKeys `json:"keys"`
	Currency      string       `json:"currency"`
	AssetCategory string       `json:"asset_category"`
	Description   string       `json:"description,omitempty"`
	// Quantity is positive when acquired and negative when disposed.
	Quantity decimal.Decimal `json:"quantity"`
	// Price is per unit in Currency, with any contract multiplier applied.
	Price     decimal.Decimal `json:"price"`
	TradeDate xtime.Date      `json:"trade_date"`
	// TradeTime is HHMMSS.
	TradeTime          string             `json:"trade_time"`
	TransactionID      string             `json:"transaction_id"`
	OrderID            string             `json:"order_id"`
	OpenCloseIndicator OpenCloseIndicator `json:"open_close_indicator"`
	// OpenLots lists the opening transactions a closing trade consumed, with
	// unique transaction ids, in statement order.
	OpenLots []OpenLot `json:"open_lots,omitempty"`
	// Sequence is the position of the trade in the overall input, used to
	// break ordering ties.
	Sequence int `json:"-"`

	CanonicalSecurityID      string          `json:"canonical_security_id"`
	PriceInReportingCurrency decimal.Decimal `json:"price_in_reporting_currency"`
	PositionType             PositionType    `json:"position_type"`
	AssetType                AssetType       `json:"asset_type"`
}

// Clone returns a deep copy of the trade.
func (t *Trade) Clone() *Trade {
	clone := *t
	clone.OpenLots = slices.Clone(t.OpenLots)
	return &clone
}

// AddOpenLot records a consumed lot, summing quantities for a repeated transaction id.
func (t *Trade) AddOpenLot(openLot OpenLot) {
	for i, existing := range t.OpenLots {
		if existing.TransactionID == openLot.TransactionID {
			t.OpenLots[i].Quantity = existing.Quantity.Add(openLot.Quantity)
			return
		}
	}
	t.OpenLots = append(t.OpenLots, openLot)
}

// OpenLotQuantity returns the summed quantity of all consumed lots.
func (t *Trade) OpenLotQuantity() decimal.Decimal {
	sum := decimal.Zero
	for _, openLot := range t.OpenLots {
		sum = sum.Add(openLot.Quantity)
	}
	return sum
}

// IsClose reports whether the trade closes a position.
func (t *Trade) IsClose() bool {
	return t.OpenCloseIndicator == OpenCloseIndicatorClose
}

// SortKey returns the chronological sort key.
func (t *Trade) SortKey() string {
	return t.TradeDate.CompactString() + t.TradeTime
}

// SourceFile is the parsed content of one input statement file.
type SourceFile struct {
	Path           string
	Trades         []*Trade
	CashFlowEvents []CashFlowEvent
}
