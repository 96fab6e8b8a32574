/*
errors.go - Claim-specific error types

PURPOSE:
  Errors for the claim lifecycle and authoring rules. Categories that the
  billing package already names (validation, not found) unwrap to its
  sentinels so callers test one set with errors.Is.

USAGE:
  var tErr *claims.InvalidTransitionError
  if errors.As(err, &tErr) {
      log.Printf("cannot move %s to %s", tErr.From, tErr.To)
  }

SEE ALSO:
  - lifecycle.go:      Produces transition errors
  - service.go:        Produces authoring errors
  - billing/errors.go: Shared sentinels
*/
package claims

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is the category for disallowed status moves.
	ErrInvalidTransition = errors.New("invalid claim status transition")

	// ErrMissingRejectionReason is returned when rejecting without a
	// non-empty reason.
	ErrMissingRejectionReason = errors.New("rejection requires a reason")

	// ErrInvoiceAlreadyClaimed is returned when an invoice already sits
	// on another claim that has not been rejected.
	ErrInvoiceAlreadyClaimed = errors.New("invoice already attached to an active claim")

	// ErrNotDraft is returned when editing a claim past authoring.
	ErrNotDraft = errors.New("claim can only be edited while in Draft")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidTransitionError reports the current and requested status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("claim is already %s", e.From)
	}
	return fmt.Sprintf("cannot transition claim from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// AlreadyClaimedError names the invoice and the claim holding it.
type AlreadyClaimedError struct {
	InvoiceID string
	ClaimID   ClaimID
	Number    string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("invoice %s is already on claim %s", e.InvoiceID, e.Number)
}

func (e *AlreadyClaimedError) Unwrap() error { return ErrInvoiceAlreadyClaimed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict returns true for errors that map to a conflicting state
// rather than malformed input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrMissingRejectionReason) ||
		errors.Is(err, ErrInvoiceAlreadyClaimed) ||
		errors.Is(err, ErrNotDraft)
}
