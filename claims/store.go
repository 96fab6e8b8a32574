/*
store.go - Persistence interface for claims

PURPOSE:
  The boundary between claim logic and the database. Beyond plain CRUD it
  exposes the one query the authoring rules need: which active claim, if
  any, already holds a given invoice.

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests and development
  - store/sqlite: Production SQLite
*/
package claims

import (
	"context"

	"github.com/clinichq/billing-engine/billing"
)

// ClaimStore handles claim persistence.
type ClaimStore interface {
	// SaveClaim inserts or replaces a claim and its invoice references.
	SaveClaim(ctx context.Context, c Claim) error

	// GetClaim returns the claim or billing.ErrNotFound.
	GetClaim(ctx context.Context, id ClaimID) (*Claim, error)

	// ListClaims returns all claims ordered by date, newest first.
	ListClaims(ctx context.Context) ([]Claim, error)

	// DeleteClaim removes a claim. Always explicit, never automatic.
	DeleteClaim(ctx context.Context, id ClaimID) error

	// ActiveClaimFor returns the claim holding invoiceID whose status is
	// not Rejected, skipping the claim identified by exclude (so a claim
	// being edited doesn't collide with itself). Returns nil when the
	// invoice is free.
	ActiveClaimFor(ctx context.Context, invoiceID billing.InvoiceID, exclude ClaimID) (*Claim, error)
}
