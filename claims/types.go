/*
Package claims provides claim aggregation and lifecycle management.

PURPOSE:
  A claim is a request for reimbursement built from a selected set of
  invoices. This package computes the claimed amount as a snapshot
  aggregate of those invoices, generates claim numbers, and enforces the
  status state machine (Draft through Paid).

KEY CONCEPTS IN THIS FILE (types.go):
  - Claim:  The claim record with status, snapshot amount, invoice refs
  - Type:   Healthcare, Insurance, or Other
  - Status: Draft, Submitted, Approved, Rejected, Paid

SNAPSHOT SEMANTICS:
  AmountClaimed is recomputed while the claim is being authored (invoices
  selected or deselected). Once stored, later edits to the underlying
  invoices never change it.

SEE ALSO:
  - aggregate.go: Amount computation from selected invoices
  - lifecycle.go: Status transition table and enforcement
  - number.go:    Claim number generation
*/
package claims

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinichq/billing-engine/billing"
	"github.com/clinichq/billing-engine/facility"
)

// =============================================================================
// IDENTIFIERS AND ENUMS
// =============================================================================

// ClaimID is the storage identifier. The human-facing claim number
// (Claim.Number, e.g. "CLM-2603-047") is generated once and kept on edit.
type ClaimID string

type Type string

const (
	TypeHealthcare Type = "Healthcare"
	TypeInsurance  Type = "Insurance"
	TypeOther      Type = "Other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeHealthcare, TypeInsurance, TypeOther:
		return true
	}
	return false
}

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSubmitted Status = "Submitted"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusPaid      Status = "Paid"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusPaid:
		return true
	}
	return false
}

// =============================================================================
// CLAIM
// =============================================================================

// Claim references invoices, it does not own them. InvoiceIDs keeps the
// selection that produced AmountClaimed; re-aggregation only happens
// through explicit authoring operations while the claim is a Draft.
type Claim struct {
	ID     ClaimID
	Number string
	Type   Type
	Date   time.Time

	Currency      billing.Currency
	AmountClaimed decimal.Decimal
	InvoiceIDs    []billing.InvoiceID
	FacilityID    facility.ID

	Status          Status
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// clone returns a deep copy so transitions stay atomic: callers observe
// either the updated claim or the original, never a half-applied one.
func (c Claim) clone() Claim {
	out := c
	out.InvoiceIDs = make([]billing.InvoiceID, len(c.InvoiceIDs))
	copy(out.InvoiceIDs, c.InvoiceIDs)
	return out
}

// Draft holds the author-settable fields of a claim. Everything else
// (number, snapshot amount, status) is derived by the service.
type Draft struct {
	Type       Type
	Date       time.Time
	Currency   billing.Currency
	InvoiceIDs []billing.InvoiceID
	FacilityID facility.ID
}
