package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceLink is a per-seminar shareable token that lets authenticated users register
// their own presence while it is valid.
type PresenceLink struct {
	ID        uuid.UUID  `json:"uuid"`
	SeminarID uuid.UUID  `json:"seminar_id"`
	Active    bool       `json:"active"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsExpired reports whether now is past ExpiresAt.
func (l *PresenceLink) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// IsValid is the single validity rule: active and not expired.
func (l *PresenceLink) IsValid(now time.Time) bool {
	return l.Active && !l.IsExpired(now)
}

// PresenceLinkStatus is the derived state sent to clients.
type PresenceLinkStatus struct {
	UUID      uuid.UUID `json:"uuid"`
	SeminarID uuid.UUID `json:"seminar_id"`
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
	IsExpired bool      `json:"is_expired"`
	IsValid   bool      `json:"is_valid"`
	URL       string    `json:"url,omitempty"`
}

// Status evaluates the link at now.
func (l *PresenceLink) Status(now time.Time) PresenceLinkStatus {
	return PresenceLinkStatus{
		UUID:      l.ID,
		SeminarID: l.SeminarID,
		Active:    l.Active,
		ExpiresAt: l.ExpiresAt,
		IsExpired: l.IsExpired(now),
		IsValid:   l.IsValid(now),
	}
}
