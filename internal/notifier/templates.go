package notifier

import (
	"fmt"
	"strings"

	"leaseflow/internal/models"
)

// Per-status email copy. Statuses without an entry fall back to a
// generic update line so a new status never silences notifications.
var statusTemplates = map[models.Status]struct {
	subject string
	body    string
}{
	models.StatusPendingPayment: {
		subject: "Application fee due for %s",
		body:    "Hi %s,\n\nYour application for %s is ready for the application fee. Once payment is confirmed you can submit it for review.",
	},
	models.StatusPaymentVerified: {
		subject: "Payment received for %s",
		body:    "Hi %s,\n\nWe received your application fee for %s. You can now submit your application for review.",
	},
	models.StatusSubmitted: {
		subject: "Application submitted for %s",
		body:    "Hi %s,\n\nYour application for %s has been submitted and is waiting for the review to begin.",
	},
	models.StatusUnderReview: {
		subject: "Your application for %s is under review",
		body:    "Hi %s,\n\nYour application for %s is now being reviewed. We will let you know as soon as there is a decision.",
	},
	models.StatusInfoRequested: {
		subject: "More information needed for %s",
		body:    "Hi %s,\n\nThe reviewer needs more information to continue with your application for %s. Please log in to see what is requested.",
	},
	models.StatusConditionalApproval: {
		subject: "Conditional approval for %s",
		body:    "Hi %s,\n\nGood news: your application for %s has been conditionally approved. Check the listed requirements to complete the approval.",
	},
	models.StatusApproved: {
		subject: "Your application for %s was approved",
		body:    "Hi %s,\n\nCongratulations! Your application for %s has been approved. The property owner will contact you with the next steps.",
	},
	models.StatusRejected: {
		subject: "Decision on your application for %s",
		body:    "Hi %s,\n\nUnfortunately your application for %s was not successful this time.",
	},
	models.StatusWithdrawn: {
		subject: "Application for %s withdrawn",
		body:    "Hi %s,\n\nYour application for %s has been withdrawn.",
	},
}

func renderStatusChange(newStatus models.Status, recipient *models.User, propertyTitle string) (subject, body string) {
	name := firstName(recipient)
	tpl, ok := statusTemplates[newStatus]
	if !ok {
		subject = fmt.Sprintf("Update on your application for %s", propertyTitle)
		body = fmt.Sprintf("Hi %s,\n\nYour application for %s moved to status %s.", name, propertyTitle, newStatus)
		return subject, body
	}
	return fmt.Sprintf(tpl.subject, propertyTitle), fmt.Sprintf(tpl.body, name, propertyTitle)
}

func renderScoringComplete(recipient *models.User, propertyTitle string, score, maxScore int) (subject, body string) {
	subject = fmt.Sprintf("Applicant score ready for %s", propertyTitle)
	body = fmt.Sprintf(
		"Hi %s,\n\nScoring for an application on %s has finished: %d out of %d points. Log in to see the full breakdown.",
		firstName(recipient), propertyTitle, score, maxScore)
	return subject, body
}

func renderStatusChangeSMS(newStatus models.Status, propertyTitle string) string {
	return fmt.Sprintf("Your rental application for %s is now %s.", propertyTitle, strings.ReplaceAll(string(newStatus), "_", " "))
}

func firstName(user *models.User) string {
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		return "there"
	}
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}
