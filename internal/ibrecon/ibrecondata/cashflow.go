// Copyright 2026 Peter Edge
//
// All rights reserved.

package ibrecondata

import (
	"github.com/bufdev/ibrecon/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// CashFlowKind is the kind of a cash-flow event.
type CashFlowKind int

const (
	// CashFlowKindDividend is an ordinary dividend.
	CashFlowKindDividend CashFlowKind = iota + 1
	// CashFlowKindPaymentInLieu is a payment in lieu of a dividend on lent shares.
	CashFlowKindPaymentInLieu
	// CashFlowKindWithholdingTax is tax withheld on a dividend. Negative amount.
	CashFlowKindWithholdingTax
	// CashFlowKindBrokerInterest is interest paid by the broker.
	CashFlowKindBrokerInterest
	// CashFlowKindBrokerFee is a fee charged by the broker.
	CashFlowKindBrokerFee
)

var ibkrCashFlowTypes = map[string]CashFlowKind{
	"Dividends":                    CashFlowKindDividend,
	"Payment In Lieu Of Dividends": CashFlowKindPaymentInLieu,
	"Withholding Tax":              CashFlowKindWithholdingTax,
	"Broker Interest Received":     CashFlowKindBrokerInterest,
	"Broker Fees":                  CashFlowKindBrokerFee,
}

// ParseIBKRCashFlowKind maps the IBKR CashTransaction type attribute.
// Types that reconciliation does not use return false.
func ParseIBKRCashFlowKind(ibkrType string) (CashFlowKind, bool) {
	kind, ok := ibkrCashFlowTypes[ibkrType]
	return kind, ok
}

// String implements fmt.Stringer.
func (c CashFlowKind) String() string {
	switch c {
	case CashFlowKindDividend:
		return "dividend"
	case CashFlowKindPaymentInLieu:
		return "payment_in_lieu"
	case CashFlowKindWithholdingTax:
		return "withholding_tax"
	case CashFlowKindBrokerInterest:
		return "broker_interest"
	case CashFlowKindBrokerFee:
		return "broker_fee"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CashFlowKind) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// IsDividend reports whether the kind produces a DividendRecord.
func (c CashFlowKind) IsDividend() bool {
	return c == CashFlowKindDividend || c == CashFlowKindPaymentInLieu
}

// IsInterest reports whether the kind belongs to the interest ledger.
func (c CashFlowKind) IsInterest() bool {
	return c == CashFlowKindBrokerInterest || c == CashFlowKindBrokerFee
}

// CashFlowEvent is one cash transaction.
type CashFlowEvent struct {
	Kind     CashFlowKind
	Currency string
	// Amount is signed: credits positive, debits negative.
	Amount decimal.Decimal
	Date   xtime.Date
	Symbol string
	// SecurityID falls back to Conid when the statement leaves it empty.
	SecurityID    string
	Conid         string
	TransactionID string
	Description   string
	AccountID     string
}

// Company is reference metadata about a dividend payer.
type Company struct {
	Symbol    string
	Name      string
	TaxNumber string
	Address   string
	Country   string
	// ReliefStatement is the treaty relief text for the payer's country.
	ReliefStatement string
}

// DividendRecord is a reconciled dividend with its matched withholding tax.
type DividendRecord struct {
	Date       xtime.Date   `json:"date"`
	Kind       CashFlowKind `json:"kind"`
	Symbol     string       `json:"symbol"`
	SecurityID string       `json:"security_id"`
	Conid      string       `json:"conid"`
	Currency   string       `json:"currency"`
	// Amount is in Currency.
	Amount                    decimal.Decimal `json:"amount"`
	AmountInReportingCurrency decimal.Decimal `json:"amount_in_reporting_currency"`
	// TaxInReportingCurrency is positive for tax withheld.
	TaxInReportingCurrency decimal.Decimal `json:"tax_in_reporting_currency"`
	Description            string          `json:"description"`
	// TransactionIDs are the source dividend events, first one first.
	TransactionIDs  []string `json:"transaction_ids"`
	PayerName       string   `json:"payer_name,omitempty"`
	TaxNumber       string   `json:"tax_number,omitempty"`
	Address         string   `json:"address,omitempty"`
	Country         string   `json:"country,omitempty"`
	ReliefStatement string   `json:"relief_statement,omitempty"`
}

// InterestRecord is the per-day total of one kind of interest or fee.
type InterestRecord struct {
	Date                      xtime.Date      `json:"date"`
	Kind                      CashFlowKind    `json:"kind"`
	AmountInReportingCurrency decimal.Decimal `json:"amount_in_reporting_currency"`
	Description               string          `json:"description"`
	Count                     int             `json:"count"`
}
