// internal/models/notification.go
package models

import "time"

// Notification is the audit record for a single delivery attempt. It is
// written once as pending and updated once to sent or failed; there is no
// automatic retry orchestration on top of it.
type Notification struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"applicationId"`
	RecipientID   string     `json:"recipientId"`
	Type          string     `json:"type"`    // "status_change", "scoring_complete"
	Channel       string     `json:"channel"` // "email", "sms"
	Subject       string     `json:"subject,omitempty"`
	Body          string     `json:"body,omitempty"`
	Status        string     `json:"status"` // "pending", "sent", "failed"
	CreatedAt     time.Time  `json:"createdAt"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
}

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

const (
	NotificationTypeStatusChange    = "status_change"
	NotificationTypeScoringComplete = "scoring_complete"
)
