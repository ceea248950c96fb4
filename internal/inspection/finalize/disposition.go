// Package finalize models the technician's terminal classification of the
// visit: no pendency, a technical pendency, or a financial pendency. Exactly
// one disposition is active at a time; selecting a new one discards the
// previous one's sub-fields entirely.
package finalize

import (
	"strings"

	"fieldservice-inspection/internal/common/errors"
)

// Kind is the top-level disposition tag.
type Kind string

const (
	KindNoPendency Kind = "no-pendency"
	KindTechnical  Kind = "technical-pendency"
	KindFinancial  Kind = "financial-pendency"
)

// FinancialKind distinguishes an immediate charge from a quote to prepare.
type FinancialKind string

const (
	FinancialCharge FinancialKind = "charge"
	FinancialQuote  FinancialKind = "quote"
)

// PartsRemoved describes equipment taken from the site during a quote.
type PartsRemoved struct {
	Removed  bool   `json:"removed"`
	Items    string `json:"items,omitempty"`
	Location string `json:"location,omitempty"`
}

// Disposition is the tagged union consumed exactly once at submission.
// Immutable once submission begins.
type Disposition struct {
	Kind           Kind          `json:"kind"`
	Description    string        `json:"description,omitempty"`
	FinancialKind  FinancialKind `json:"financialKind,omitempty"`
	EstimatedValue *float64      `json:"estimatedValue,omitempty"`
	PartsRemoved   *PartsRemoved `json:"partsRemoved,omitempty"`
}

// NoPendency builds the no-issue disposition.
func NoPendency() Disposition {
	return Disposition{Kind: KindNoPendency}
}

// Technical builds a technical-pendency disposition.
func Technical(description string) Disposition {
	return Disposition{Kind: KindTechnical, Description: description}
}

// Financial builds a financial-pendency disposition.
func Financial(kind FinancialKind, description string) Disposition {
	return Disposition{Kind: KindFinancial, FinancialKind: kind, Description: description}
}

// Validate checks the disposition's mandatory sub-fields. The parts-removed
// item list stays optional even when removal is flagged.
func (d Disposition) Validate() error {
	switch d.Kind {
	case KindNoPendency:
		return nil

	case KindTechnical:
		if strings.TrimSpace(d.Description) == "" {
			return errors.NewInvalidDispositionError("technical pendency requires a description")
		}
		return nil

	case KindFinancial:
		if d.FinancialKind != FinancialCharge && d.FinancialKind != FinancialQuote {
			return errors.NewInvalidDispositionError("financial pendency requires a kind (charge or quote)")
		}
		if strings.TrimSpace(d.Description) == "" {
			return errors.NewInvalidDispositionError("financial pendency requires a description")
		}
		return nil

	default:
		return errors.NewInvalidDispositionError("no disposition selected")
	}
}
