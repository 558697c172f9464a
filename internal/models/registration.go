package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration links a user to a seminar. Present is set when attendance is confirmed;
// CertificateCode is set once a certificate is issued.
type Registration struct {
	ID                  uuid.UUID  `json:"id"`
	SeminarID           uuid.UUID  `json:"seminar_id"`
	UserID              uuid.UUID  `json:"user_id"`
	Present             bool       `json:"present"`
	CertificateCode     *string    `json:"certificate_code,omitempty"`
	CertificateIssuedAt *time.Time `json:"certificate_issued_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// RegistrationWithSeminar is a registration joined with its seminar summary.
type RegistrationWithSeminar struct {
	Registration
	Seminar SeminarSummary `json:"seminar"`
}

// Registrant is a registration joined with its user, for admin listings.
type Registrant struct {
	Registration
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}
