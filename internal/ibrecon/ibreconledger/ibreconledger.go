// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconledger groups classified trades into the four output ledgers.
package ibreconledger

import (
	"fmt"

	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/samber/lo"
)

// Kind is one of the four ledgers.
type Kind int

const (
	// KindLongNormal holds long positions in normal assets.
	KindLongNormal Kind = iota + 1
	// KindShortNormal holds short positions in normal assets.
	KindShortNormal
	// KindLongDerivative holds long positions in derivatives.
	KindLongDerivative
	// KindShortDerivative holds short positions in derivatives.
	KindShortDerivative
)

var (
	// AllKinds are all Kinds in output order.
	AllKinds = []Kind{
		KindLongNormal,
		KindShortNormal,
		KindLongDerivative,
		KindShortDerivative,
	}
	// AllKindStrings are the string values of AllKinds.
	AllKindStrings = lo.Map(AllKinds, func(kind Kind, _ int) string { return kind.String() })
)

// ParseKind parses a Kind from its string value.
func ParseKind(s string) (Kind, error) {
	for _, kind := range AllKinds {
		if kind.String() == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown ledger %q, must be one of %v", s, AllKindStrings)
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindLongNormal:
		return "long-normal"
	case KindShortNormal:
		return "short-normal"
	case KindLongDerivative:
		return "long-derivative"
	case KindShortDerivative:
		return "short-derivative"
	default:
		return fmt.Sprintf("%d", int(k))
	}
}

// KindFor returns the ledger a classified trade belongs to.
func KindFor(trade *ibrecondata.Trade) (Kind, error) {
	switch {
	case trade.PositionType == ibrecondata.PositionTypeLong && trade.AssetType == ibrecondata.AssetTypeNormal:
		return KindLongNormal, nil
	case trade.PositionType == ibrecondata.PositionTypeShort && trade.AssetType == ibrecondata.AssetTypeNormal:
		return KindShortNormal, nil
	case trade.PositionType == ibrecondata.PositionTypeLong && trade.AssetType == ibrecondata.AssetTypeDerivative:
		return KindLongDerivative, nil
	case trade.PositionType == ibrecondata.PositionTypeShort && trade.AssetType == ibrecondata.AssetTypeDerivative:
		return KindShortDerivative, nil
	default:
		return 0, fmt.Errorf("trade %s is not classified (position %v, asset %v)", trade.TransactionID, trade.PositionType, trade.AssetType)
	}
}

// Ledger holds the four ledgers, each keyed by canonical security id.
type Ledger struct {
	kindToBuckets map[Kind]*ibrecondata.Buckets
}

// Build distributes the trades of every bucket into the ledgers, keeping
// bucket and trade order.
func Build(buckets *ibrecondata.Buckets) (*Ledger, error) {
	ledger := &Ledger{
		kindToBuckets: make(map[Kind]*ibrecondata.Buckets, len(AllKinds)),
	}
	for _, kind := range AllKinds {
		ledger.kindToBuckets[kind] = ibrecondata.NewBuckets()
	}
	for _, id := range buckets.IDs() {
		for _, trade := range buckets.Trades(id) {
			kind, err := KindFor(trade)
			if err != nil {
				return nil, err
			}
			ledger.kindToBuckets[kind].Append(id, trade)
		}
	}
	return ledger, nil
}

// Buckets returns the ledger of the given kind.
func (l *Ledger) Buckets(kind Kind) *ibrecondata.Buckets {
	return l.kindToBuckets[kind]
}

// Rows returns the trades of the ledger of the given kind, bucket by bucket.
func (l *Ledger) Rows(kind Kind) []*ibrecondata.Trade {
	buckets := l.kindToBuckets[kind]
	if buckets == nil {
		return nil
	}
	return lo.FlatMap(buckets.IDs(), func(id string, _ int) []*ibrecondata.Trade {
		return buckets.Trades(id)
	})
}

// TradeCount returns the number of trades across all ledgers.
func (l *Ledger) TradeCount() int {
	return lo.SumBy(AllKinds, func(kind Kind) int { return l.kindToBuckets[kind].TradeCount() })
}
