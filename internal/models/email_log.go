package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType identifies a notification kind.
const (
	EmailTypeBugReport          = "bug_report"
	EmailTypeCertificate        = "certificate_generated"
	EmailTypeEvaluationReminder = "evaluation_reminder"
	EmailTypeSeminarReminder    = "seminar_reminder"
	EmailTypePasswordReset      = "password_reset"
)

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records sent notification emails.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	SeminarID      *uuid.UUID `json:"seminar_id,omitempty"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	JobID          string     `json:"job_id,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
