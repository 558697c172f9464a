package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is the public view of an issued certificate, addressed by its code.
type Certificate struct {
	Code           string         `json:"code"`
	RegistrationID uuid.UUID      `json:"registration_id"`
	UserName       string         `json:"user_name"`
	Seminar        SeminarSummary `json:"seminar"`
	IssuedAt       time.Time      `json:"issued_at"`
	URL            string         `json:"url"`
}
