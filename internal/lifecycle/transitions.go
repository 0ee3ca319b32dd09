// Package lifecycle implements the rental-application lifecycle engine:
// the transition validator, the eligibility score calculator, and the
// orchestrator that owns every status mutation.
//
// Valid status graph:
//
//	draft ──► pending_payment ──► payment_verified ──► submitted ──► under_review
//	                                                                  │ ▲      │
//	                                                   info_requested ◄┘│      ├──► approved
//	                                                        │           │      ├──► rejected
//	                                                        └───────────┘      └──► conditional_approval ──► approved | rejected
//
// Every non-terminal status can also move to withdrawn. approved,
// rejected and withdrawn are terminal.
package lifecycle

import "leaseflow/internal/models"

// validTransitions lists every allowed (from → to) pair. A status that is
// absent from the map has no outgoing transitions; unknown statuses fall
// into the same empty set, so the check fails closed.
var validTransitions = map[models.Status][]models.Status{
	models.StatusDraft:           {models.StatusPendingPayment, models.StatusWithdrawn},
	models.StatusPendingPayment:  {models.StatusPaymentVerified, models.StatusWithdrawn},
	models.StatusPaymentVerified: {models.StatusSubmitted, models.StatusWithdrawn},
	models.StatusSubmitted:       {models.StatusUnderReview, models.StatusWithdrawn},
	models.StatusUnderReview: {
		models.StatusInfoRequested,
		models.StatusConditionalApproval,
		models.StatusApproved,
		models.StatusRejected,
		models.StatusWithdrawn,
	},
	models.StatusInfoRequested: {
		models.StatusUnderReview,
		models.StatusConditionalApproval,
		models.StatusApproved,
		models.StatusRejected,
		models.StatusWithdrawn,
	},
	models.StatusConditionalApproval: {
		models.StatusApproved,
		models.StatusRejected,
		models.StatusWithdrawn,
	},
	// approved, rejected and withdrawn are terminal
}

// IsTransitionAllowed returns true when moving current → requested is
// permitted by the state machine. Pure, deterministic, never panics.
func IsTransitionAllowed(current, requested models.Status) bool {
	for _, s := range validTransitions[current] {
		if s == requested {
			return true
		}
	}
	return false
}

// ValidNextStatuses returns the statuses reachable from current. The
// result is a copy; terminal and unknown statuses yield an empty slice.
func ValidNextStatuses(current models.Status) []models.Status {
	allowed := validTransitions[current]
	out := make([]models.Status, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s models.Status) bool {
	return len(validTransitions[s]) == 0
}
