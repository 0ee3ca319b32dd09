// internal/models/application.go
package models

import "time"

// Application is the central rental-application record. JSON names match
// the persisted shape, so existing stored rows keep deserializing.
type Application struct {
	ID             string `json:"id"`
	PropertyID     string `json:"propertyId"`
	ApplicantID    string `json:"applicantId"`
	Status         Status `json:"status"`
	PreviousStatus Status `json:"previousStatus,omitempty"`

	// StatusHistory is append-only. Entries are never rewritten or
	// reordered; its length strictly increases with every change.
	StatusHistory []StatusHistoryEntry `json:"statusHistory"`

	Data ApplicationData `json:"applicationData"`

	Score          *int            `json:"score,omitempty"`
	ScoreBreakdown *ScoreBreakdown `json:"scoreBreakdown,omitempty"`
	ScoredAt       *time.Time      `json:"scoredAt,omitempty"`

	// Status-specific metadata, populated only when the matching status
	// is entered. Blocks from unrelated prior states are left untouched.
	Rejection           *RejectionDetails           `json:"rejection,omitempty"`
	InfoRequest         *InfoRequestDetails         `json:"infoRequest,omitempty"`
	ConditionalApproval *ConditionalApprovalDetails `json:"conditionalApproval,omitempty"`

	Payment PaymentInfo `json:"payment"`

	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	ExpiredAt *time.Time `json:"expiredAt,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// StatusHistoryEntry records a single status change for audit.
type StatusHistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	ChangedBy string    `json:"changedBy"`
	Reason    string    `json:"reason,omitempty"`
}

// ApplicationData is the applicant's self-reported data that feeds scoring.
type ApplicationData struct {
	MonthlyIncome         float64    `json:"monthlyIncome"`
	EmploymentStatus      string     `json:"employmentStatus,omitempty"`
	EmploymentDuration    string     `json:"employmentDuration,omitempty"`
	RentalHistoryDuration string     `json:"rentalHistoryDuration,omitempty"`
	HasEviction           bool       `json:"hasEviction,omitempty"`
	SSN                   string     `json:"ssn,omitempty"`
	Documents             []Document `json:"documents,omitempty"`
}

// DocumentKind enumerates the document kinds required for a complete file.
type DocumentKind string

const (
	DocumentIdentity               DocumentKind = "identity"
	DocumentProofOfIncome          DocumentKind = "proof_of_income"
	DocumentEmploymentVerification DocumentKind = "employment_verification"
)

// RequiredDocumentKinds are the three kinds the documents sub-score counts.
var RequiredDocumentKinds = []DocumentKind{
	DocumentIdentity,
	DocumentProofOfIncome,
	DocumentEmploymentVerification,
}

type Document struct {
	Kind     DocumentKind `json:"kind"`
	Status   string       `json:"status"` // "uploaded" or "verified"
	FileName string       `json:"fileName,omitempty"`
}

// ScoreBreakdown carries the five weighted sub-scores plus qualitative
// flags. The total score always equals the sum of the sub-scores.
type ScoreBreakdown struct {
	Income        int      `json:"income"`
	Credit        int      `json:"credit"`
	RentalHistory int      `json:"rentalHistory"`
	Employment    int      `json:"employment"`
	Documents     int      `json:"documents"`
	Flags         []string `json:"flags,omitempty"`
}

// Sum returns the total the sub-scores add up to.
func (b ScoreBreakdown) Sum() int {
	return b.Income + b.Credit + b.RentalHistory + b.Employment + b.Documents
}

// RejectionDetails is populated when an application is rejected.
type RejectionDetails struct {
	Category string                 `json:"category,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// InfoRequestDetails is populated when a reviewer asks for more information.
type InfoRequestDetails struct {
	Reason      string     `json:"reason,omitempty"`
	RequestedAt time.Time  `json:"requestedAt"`
	RequestedBy string     `json:"requestedBy"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// ConditionalApprovalDetails is populated on conditional approval.
type ConditionalApprovalDetails struct {
	Reason            string     `json:"reason,omitempty"`
	Requirements      []string   `json:"requirements,omitempty"`
	RequiredDocuments []string   `json:"requiredDocuments,omitempty"`
	UploadedDocuments []string   `json:"uploadedDocuments,omitempty"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
}

// PaymentInfo tracks the application fee. Attempts are append-only.
type PaymentInfo struct {
	Status             string           `json:"status"` // pending/paid/failed/manually_verified
	Attempts           []PaymentAttempt `json:"attempts,omitempty"`
	ManuallyVerifiedBy string           `json:"manuallyVerifiedBy,omitempty"`
	ManuallyVerifiedAt *time.Time       `json:"manuallyVerifiedAt,omitempty"`
}

const (
	PaymentPending          = "pending"
	PaymentPaid             = "paid"
	PaymentFailed           = "failed"
	PaymentManuallyVerified = "manually_verified"
)

type PaymentAttempt struct {
	At      time.Time `json:"at"`
	Outcome string    `json:"outcome"`
	Note    string    `json:"note,omitempty"`
}

// CoApplicant is a secondary person on the same application. Its income
// snapshot contributes to the combined-income scoring rule. It is owned
// by exactly one Application and deleted with it.
type CoApplicant struct {
	ID                 string    `json:"id"`
	ApplicationID      string    `json:"applicationId"`
	FullName           string    `json:"fullName"`
	MonthlyIncome      float64   `json:"monthlyIncome"`
	EmploymentStatus   string    `json:"employmentStatus,omitempty"`
	EmploymentDuration string    `json:"employmentDuration,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Property is the subset of the property record the engine needs.
type Property struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Title   string `json:"title"`
}

// User is the subset of the user record the engine needs.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
}
