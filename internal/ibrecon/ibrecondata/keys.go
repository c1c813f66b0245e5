// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibrecondata

// KeyType is a kind of security identifier. Lower values are stronger.
type KeyType int

const (
	// KeyTypeISIN is the International Securities Identification Number.
	KeyTypeISIN KeyType = iota + 1
	// KeyTypeCUSIP is the CUSIP number.
	KeyTypeCUSIP
	// KeyTypeSecurityID is the broker's securityID attribute.
	KeyTypeSecurityID
	// KeyTypeConid is the IBKR contract id.
	KeyTypeConid
	// KeyTypeSymbol is the ticker symbol.
	KeyTypeSymbol
)

// AllKeyTypes lists key types from strongest to weakest.
var AllKeyTypes = []KeyType{
	KeyTypeISIN,
	KeyTypeCUSIP,
	KeyTypeSecurityID,
	KeyTypeConid,
	KeyTypeSymbol,
}

// String implements fmt.Stringer.
func (k KeyType) String() string {
	switch k {
	case KeyTypeISIN:
		return "isin"
	case KeyTypeCUSIP:
		return "cusip"
	case KeyTypeSecurityID:
		return "security_id"
	case KeyTypeConid:
		return "conid"
	case KeyTypeSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// StrongerThan reports whether k takes precedence over other.
func (k KeyType) StrongerThan(other KeyType) bool {
	return k < other
}

// SecurityKeys holds the identifiers a record carries. Empty means absent.
type SecurityKeys struct {
	ISIN       string `json:"isin,omitempty"`
	CUSIP      string `json:"cusip,omitempty"`
	SecurityID string `json:"security_id,omitempty"`
	Conid      string `json:"conid,omitempty"`
	Symbol     string `json:"symbol,omitempty"`
}

// SecurityKey is one typed identifier.
type SecurityKey struct {
	Type  KeyType
	Value string
}

// Get returns the identifier of the given type.
func (s SecurityKeys) Get(keyType KeyType) string {
	switch keyType {
	case KeyTypeISIN:
		return s.ISIN
	case KeyTypeCUSIP:
		return s.CUSIP
	case KeyTypeSecurityID:
		return s.SecurityID
	case KeyTypeConid:
		return s.Conid
	case KeyTypeSymbol:
		return s.Symbol
	default:
		return ""
	}
}

// Strongest returns the strongest identifier present.
func (s SecurityKeys) Strongest() (SecurityKey, bool) {
	for _, keyType := range AllKeyTypes {
		if value := s.Get(keyType); value != "" {
			return SecurityKey{Type: keyType, Value: value}, true
		}
	}
	return SecurityKey{}, false
}

// SplitKey returns the key split events are registered under.
func (s SecurityKeys) SplitKey() string {
	return s.Symbol + ":" + s.Conid
}
