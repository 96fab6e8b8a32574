/*
lifecycle.go - Claim status state machine

PURPOSE:
  Enforces valid claim status transitions as an explicit table, validated
  before anything is persisted and independent of any interface. The UI
  this replaces only guarded transitions by disabling a button; here the
  rule lives in the engine.

STATE MACHINE:

  Draft ──▶ Submitted ──▶ Approved ──▶ Paid
                 │             │
                 ▼             ▼
              Rejected ◀───────┘

  - Paid and Rejected are terminal
  - Same-state transitions are invalid, not no-ops
  - Rejecting always requires a non-empty reason

ATOMICITY:
  Transition operates on a copy: either the returned claim carries the
  new status (and rejection reason when applicable), or the error leaves
  the caller holding the unchanged original.
*/
package claims

// transitions is the complete allowed-transition table. Anything absent
// is invalid, including moving a status onto itself.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusPaid, StatusRejected},
	StatusRejected:  {},
	StatusPaid:      {},
}

// CanTransition reports whether from -> to is in the allowed table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns the claim moved to the requested status. Invalid
// moves fail with InvalidTransitionError reporting both statuses; moving
// to Rejected without a reason fails with ErrMissingRejectionReason. On
// error the input claim is returned unchanged.
func Transition(c Claim, to Status, reason string) (Claim, error) {
	if !to.Valid() {
		return c, &InvalidTransitionError{From: c.Status, To: to}
	}
	if !CanTransition(c.Status, to) {
		return c, &InvalidTransitionError{From: c.Status, To: to}
	}
	if to == StatusRejected && reason == "" {
		return c, ErrMissingRejectionReason
	}

	out := c.clone()
	out.Status = to
	if to == StatusRejected {
		out.RejectionReason = reason
	}
	return out, nil
}

// Terminal reports whether no further transition is reachable from s.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}
