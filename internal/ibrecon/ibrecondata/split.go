// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibrecondata

import (
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// SplitEvent is a stock split: New shares for every Old share.
type SplitEvent struct {
	Keys SecurityKeys
	// EffectiveDate is the first date trades are already quoted post-split.
	EffectiveDate xtime.Date
	New           decimal.Decimal
	Old           decimal.Decimal
}

// Multiplier returns New/Old.
func (s SplitEvent) Multiplier() decimal.Decimal {
	return s.New.Div(s.Old)
}
