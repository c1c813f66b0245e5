// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibrecondata

// Buckets maps canonical security ids to their trades, keeping ids in
// first-insertion order so iteration is deterministic.
type Buckets struct {
	ids    []string
	trades map[string][]*Trade
}

// NewBuckets returns empty Buckets.
func NewBuckets() *Buckets {
	return &Buckets{
		trades: make(map[string][]*Trade),
	}
}

// Append adds trades to the bucket, creating it if needed.
func (b *Buckets) Append(id string, trades ...*Trade) {
	if _, ok := b.trades[id]; !ok {
		b.ids = append(b.ids, id)
		b.trades[id] = nil
	}
	b.trades[id] = append(b.trades[id], trades...)
}

// IDs returns the canonical security ids in insertion order.
func (b *Buckets) IDs() []string {
	return b.ids
}

// Trades returns the trades of the bucket.
func (b *Buckets) Trades(id string) []*Trade {
	return b.trades[id]
}

// Len returns the number of buckets.
func (b *Buckets) Len() int {
	return len(b.ids)
}

// TradeCount returns the number of trades across all buckets.
func (b *Buckets) TradeCount() int {
	var count int
	for _, trades := range b.trades {
		count += len(trades)
	}
	return count
}
