package models

import "fmt"

// Status mirrors the application_status enum persisted in PostgreSQL.
// The lifecycle package owns the rules about which moves are legal.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusPendingPayment      Status = "pending_payment"
	StatusPaymentVerified     Status = "payment_verified"
	StatusSubmitted           Status = "submitted"
	StatusUnderReview         Status = "under_review"
	StatusInfoRequested       Status = "info_requested"
	StatusConditionalApproval Status = "conditional_approval"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusWithdrawn           Status = "withdrawn"
)

// AllStatuses lists every member of the enumeration, in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPendingPayment,
	StatusPaymentVerified,
	StatusSubmitted,
	StatusUnderReview,
	StatusInfoRequested,
	StatusConditionalApproval,
	StatusApproved,
	StatusRejected,
	StatusWithdrawn,
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values. Free-text statuses never make it past this point.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// Role identifies what an actor is allowed to do to an application.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleOwner     Role = "owner"
	RoleAgent     Role = "agent"
	RoleAdmin     Role = "admin"
	// RoleSystem is used by automated jobs such as the stale-draft sweep
	// and payment confirmation callbacks.
	RoleSystem Role = "system"
)
