package claims_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinichq/billing-engine/claims"
)

func draftClaim() claims.Claim {
	return claims.Claim{
		ID:     "c1",
		Number: "RPC-2603-047",
		Type:   claims.TypeHealthcare,
		Status: claims.StatusDraft,
	}
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestTransition_FullWalkToPaid(t *testing.T) {
	// GIVEN: A Draft claim
	// WHEN: It moves Draft -> Submitted -> Approved -> Paid
	// THEN: Every step succeeds and lands on the expected status

	c := draftClaim()

	for _, to := range []claims.Status{claims.StatusSubmitted, claims.StatusApproved, claims.StatusPaid} {
		next, err := claims.Transition(c, to, "")
		require.NoError(t, err, "transition %s -> %s", c.Status, to)
		assert.Equal(t, to, next.Status)
		c = next
	}

	assert.True(t, claims.Terminal(c.Status))
}

func TestTransition_RejectedFromSubmitted(t *testing.T) {
	c := draftClaim()
	c.Status = claims.StatusSubmitted

	next, err := claims.Transition(c, claims.StatusRejected, "missing referral letter")
	require.NoError(t, err)
	assert.Equal(t, claims.StatusRejected, next.Status)
	assert.Equal(t, "missing referral letter", next.RejectionReason)
}

func TestTransition_RejectedFromApproved(t *testing.T) {
	c := draftClaim()
	c.Status = claims.StatusApproved

	next, err := claims.Transition(c, claims.StatusRejected, "payer reversed the approval")
	require.NoError(t, err)
	assert.Equal(t, claims.StatusRejected, next.Status)
}

// =============================================================================
// INVALID MOVES
// =============================================================================

func TestTransition_InvalidMoves(t *testing.T) {
	cases := []struct {
		name string
		from claims.Status
		to   claims.Status
	}{
		{"skip ahead", claims.StatusDraft, claims.StatusApproved},
		{"draft straight to paid", claims.StatusDraft, claims.StatusPaid},
		{"draft cannot be rejected", claims.StatusDraft, claims.StatusRejected},
		{"backwards", claims.StatusSubmitted, claims.StatusDraft},
		{"paid is terminal", claims.StatusPaid, claims.StatusSubmitted},
		{"rejected is terminal", claims.StatusRejected, claims.StatusSubmitted},
		{"rejected cannot be resubmitted as approved", claims.StatusRejected, claims.StatusApproved},
		{"same state", claims.StatusSubmitted, claims.StatusSubmitted},
		{"unknown target", claims.StatusDraft, claims.Status("Archived")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := draftClaim()
			c.Status = tc.from

			out, err := claims.Transition(c, tc.to, "reason just in case")
			assert.ErrorIs(t, err, claims.ErrInvalidTransition)

			var transErr *claims.InvalidTransitionError
			require.ErrorAs(t, err, &transErr)
			assert.Equal(t, tc.from, transErr.From)
			assert.Equal(t, tc.to, transErr.To)

			assert.Equal(t, tc.from, out.Status, "failed transition must leave the claim unchanged")
		})
	}
}

func TestTransition_RejectionNeedsReason(t *testing.T) {
	// GIVEN: A Submitted claim
	// WHEN: Rejected without a reason
	// THEN: ErrMissingRejectionReason, and the claim stays Submitted

	c := draftClaim()
	c.Status = claims.StatusSubmitted

	out, err := claims.Transition(c, claims.StatusRejected, "")
	assert.ErrorIs(t, err, claims.ErrMissingRejectionReason)
	assert.Equal(t, claims.StatusSubmitted, out.Status)
	assert.Empty(t, out.RejectionReason)
}

func TestTransition_DoesNotMutateInput(t *testing.T) {
	c := draftClaim()

	_, err := claims.Transition(c, claims.StatusSubmitted, "")
	require.NoError(t, err)
	assert.Equal(t, claims.StatusDraft, c.Status)
}

// =============================================================================
// TABLE PROPERTIES
// =============================================================================

func TestCanTransition_MatchesTable(t *testing.T) {
	assert.True(t, claims.CanTransition(claims.StatusDraft, claims.StatusSubmitted))
	assert.True(t, claims.CanTransition(claims.StatusSubmitted, claims.StatusApproved))
	assert.True(t, claims.CanTransition(claims.StatusApproved, claims.StatusPaid))
	assert.False(t, claims.CanTransition(claims.StatusDraft, claims.StatusDraft))
	assert.False(t, claims.CanTransition(claims.StatusPaid, claims.StatusRejected))
}

func TestTerminal(t *testing.T) {
	assert.True(t, claims.Terminal(claims.StatusPaid))
	assert.True(t, claims.Terminal(claims.StatusRejected))
	assert.False(t, claims.Terminal(claims.StatusDraft))
	assert.False(t, claims.Terminal(claims.StatusSubmitted))
	assert.False(t, claims.Terminal(claims.StatusApproved))
}
