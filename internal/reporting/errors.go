package reporting

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPeriod is returned for an unknown timeframe or granularity token.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidHorizon is returned when a cash-flow horizon is out of range.
	ErrInvalidHorizon = errors.New("invalid cash-flow horizon")

	// ErrInvalidQuery is returned for a bad account filter or paging value.
	ErrInvalidQuery = errors.New("invalid report query")

	// ErrUpstreamFetch is returned when the invoice store fails to supply data.
	// The report is aborted; no retry happens here.
	ErrUpstreamFetch = errors.New("invoice data unavailable")
)

// ReportError wraps a failure with the report operation that hit it.
type ReportError struct {
	Op  string
	Err error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("reporting: %s: %v", e.Op, e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by bad caller input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidHorizon) ||
		errors.Is(err, ErrInvalidQuery)
}

// WarningKind classifies a data-quality problem found in a single record.
type WarningKind string

const (
	WarningMissingAmount    WarningKind = "missing_amount"
	WarningNegativeAmount   WarningKind = "negative_amount"
	WarningAmountFromItems  WarningKind = "amount_from_line_items"
	WarningUnreconciled     WarningKind = "unreconciled"
	WarningLineItemMismatch WarningKind = "line_item_mismatch"
	WarningStaleStatus      WarningKind = "stale_status"
	WarningCurrencyMismatch WarningKind = "currency_mismatch"
	WarningUnknownType      WarningKind = "unknown_type"
	WarningUnknownStatus    WarningKind = "unknown_status"
	WarningMissingIssueDate WarningKind = "missing_issue_date"
)

// DataQualityWarning describes one record that was skipped or flagged.
// Warnings never abort a report.
type DataQualityWarning struct {
	Kind       WarningKind `json:"kind"`
	InvoiceID  string      `json:"invoiceId"`
	LineItemID string      `json:"lineItemId,omitempty"`
	Message    string      `json:"message"`
	Skipped    bool        `json:"skipped"`
}

func (w DataQualityWarning) String() string {
	if w.LineItemID != "" {
		return fmt.Sprintf("%s: invoice %s line %s: %s", w.Kind, w.InvoiceID, w.LineItemID, w.Message)
	}
	return fmt.Sprintf("%s: invoice %s: %s", w.Kind, w.InvoiceID, w.Message)
}
