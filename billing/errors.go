/*
errors.go - Error types shared across the billing engine

PURPOSE:
  Sentinel errors and structured error types used by the invoice engine
  and its stores. Domain packages (claims) define their own errors and
  unwrap to these where the category matches.

PROPAGATION POLICY:
  Every engine error is returned to the caller as an explicit result.
  Nothing is swallowed, nothing is fatal: each error is scoped to the
  single operation that produced it, and the prior state stays intact.

USAGE:
  if errors.Is(err, billing.ErrIndexOutOfRange) {
      // invalid line-item position, nothing was changed
  }

SEE ALSO:
  - engine.go:        Produces IndexError and ValidationError
  - claims/errors.go: Claim-specific errors
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrIndexOutOfRange is returned when a line-item operation targets a
	// position outside the item sequence.
	ErrIndexOutOfRange = errors.New("line item index out of range")

	// ErrValidation is the category for rejected input. Wrapped by
	// ValidationError, which carries the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IndexError reports an out-of-range line-item position.
type IndexError struct {
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("line item index %d out of range [0,%d)", e.Index, e.Length)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// ValidationError reports a rejected field. Index is the line-item
// position when the field belongs to an item, -1 otherwise.
type ValidationError struct {
	Field  string
	Reason string
	Index  int
}

func (e *ValidationError) Error() string {
	if e.Field == "items" {
		return fmt.Sprintf("invalid %s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange) || errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
