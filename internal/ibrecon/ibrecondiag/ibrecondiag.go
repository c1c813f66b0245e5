// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibrecondiag carries the diagnostics of a reconciliation run: the
// non-fatal warnings accumulated along the way and the fatal failure that
// stopped a run.
package ibrecondiag

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bufdev/ibrecon/internal/standard/xtime"
)

// Stage names the pipeline stage that detected a condition.
type Stage string

const (
	StageIngest         Stage = "ingest"
	StageIdentity       Stage = "identity resolution"
	StageSplit          Stage = "split adjustment"
	StageClassification Stage = "position classification"
	StageCurrency       Stage = "currency conversion"
	StageLotAttribution Stage = "lot attribution"
	StageFillMerge      Stage = "fill merge"
	StageBucketing      Stage = "bucketing"
	StageDividend       Stage = "dividend reconciliation"
	StageInterest       Stage = "interest reconciliation"
)

// WarningKind classifies a data-quality warning.
type WarningKind int

const (
	// WarningKindRateSubstituted means an earlier date's exchange rate was used.
	WarningKindRateSubstituted WarningKind = iota + 1
	// WarningKindUnsupportedAssetCategory means a security was excluded from the ledger.
	WarningKindUnsupportedAssetCategory
	// WarningKindMissingCompany means dividend payer metadata was left blank.
	WarningKindMissingCompany
	// WarningKindFragmentedSecurity means one symbol ended up in several buckets.
	WarningKindFragmentedSecurity
	// WarningKindOrphanLot means a Lot row had no preceding trade.
	WarningKindOrphanLot
)

// String implements fmt.Stringer.
func (w WarningKind) String() string {
	switch w {
	case WarningKindRateSubstituted:
		return "rate_substituted"
	case WarningKindUnsupportedAssetCategory:
		return "unsupported_asset_category"
	case WarningKindMissingCompany:
		return "missing_company"
	case WarningKindFragmentedSecurity:
		return "fragmented_security"
	case WarningKindOrphanLot:
		return "orphan_lot"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (w WarningKind) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// Warning is a recoverable data-quality problem.
type Warning struct {
	Kind          WarningKind `json:"kind"`
	Message       string      `json:"message"`
	Date          xtime.Date  `json:"date"`
	SecurityID    string      `json:"security_id,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
}

// Diagnostics accumulates warnings for one run. Identical warnings are
// recorded once. Not safe for concurrent use.
type Diagnostics struct {
	logger   *slog.Logger
	warnings []Warning
	seen     map[Warning]struct{}
}

// NewDiagnostics returns a new Diagnostics that logs each warning as it is recorded.
func NewDiagnostics(logger *slog.Logger) *Diagnostics {
	return &Diagnostics{
		logger: logger,
		seen:   make(map[Warning]struct{}),
	}
}

// Warn records a warning.
func (d *Diagnostics) Warn(warning Warning) {
	if _, ok := d.seen[warning]; ok {
		return
	}
	d.seen[warning] = struct{}{}
	d.warnings = append(d.warnings, warning)
	attrs := []any{"kind", warning.Kind.String()}
	if !warning.Date.IsZero() {
		attrs = append(attrs, "date", warning.Date.String())
	}
	if warning.SecurityID != "" {
		attrs = append(attrs, "security", warning.SecurityID)
	}
	if warning.TransactionID != "" {
		attrs = append(attrs, "transaction_id", warning.TransactionID)
	}
	d.logger.Warn(warning.Message, attrs...)
}

// Warnings returns the recorded warnings in the order they were recorded.
func (d *Diagnostics) Warnings() []Warning {
	return d.warnings
}

// ReconciliationFailure is a fatal condition. No output of the run may be
// trusted once it is returned.
type ReconciliationFailure struct {
	Stage  Stage
	Reason string
	// Date, SecurityID and TransactionID locate the offending record, when known.
	Date          xtime.Date
	SecurityID    string
	TransactionID string
	// Attempts is the number of fallback lookups exhausted, zero if none.
	Attempts int
}

// Error implements error.
func (r *ReconciliationFailure) Error() string {
	var details []string
	if !r.Date.IsZero() {
		details = append(details, "date "+r.Date.String())
	}
	if r.SecurityID != "" {
		details = append(details, "security "+r.SecurityID)
	}
	if r.TransactionID != "" {
		details = append(details, "transaction "+r.TransactionID)
	}
	if r.Attempts > 0 {
		details = append(details, fmt.Sprintf("%d fallback attempts exhausted", r.Attempts))
	}
	message := fmt.Sprintf("reconciliation failed during %s: %s", r.Stage, r.Reason)
	if len(details) > 0 {
		message += " (" + strings.Join(details, ", ") + ")"
	}
	return message
}

// AsReconciliationFailure returns the ReconciliationFailure in err's chain.
func AsReconciliationFailure(err error) (*ReconciliationFailure, bool) {
	var failure *ReconciliationFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// WithRecord fills in the security and transaction of a ReconciliationFailure
// in err's chain where they are not yet set, and returns err.
func WithRecord(err error, securityID string, transactionID string) error {
	if failure, ok := AsReconciliationFailure(err); ok {
		if failure.SecurityID == "" {
			failure.SecurityID = securityID
		}
		if failure.TransactionID == "" {
			failure.TransactionID = transactionID
		}
	}
	return err
}
