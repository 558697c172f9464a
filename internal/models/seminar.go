package models

import (
	"time"

	"github.com/google/uuid"
)

// SeminarType classifies a seminar (lecture, short course, ...).
type SeminarType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Subject is a topic tag shared across seminars.
type Subject struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	SeminarCount int    `json:"seminars_count"`
}

// Speaker is the public view of a user presenting a seminar.
type Speaker struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Institution string    `json:"institution,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Seminar is a scheduled talk. It becomes expired once ScheduledAt has passed.
type Seminar struct {
	ID                 uuid.UUID    `json:"id"`
	Name               string       `json:"name"`
	Slug               string       `json:"slug"`
	Description        string       `json:"description"`
	ScheduledAt        *time.Time   `json:"scheduled_at"`
	RoomLink           *string      `json:"room_link"`
	Location           *string      `json:"location"`
	SeminarType        *SeminarType `json:"seminar_type"`
	WorkshopID         *uuid.UUID   `json:"workshop_id"`
	Active             bool         `json:"active"`
	Speakers           []Speaker    `json:"speakers"`
	Subjects           []Subject    `json:"subjects"`
	RegistrationsCount int          `json:"registrations_count"`
	IsExpired          bool         `json:"is_expired"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Expired reports whether the seminar date has passed at now. Unscheduled seminars never expire.
func (s *Seminar) Expired(now time.Time) bool {
	return s.ScheduledAt != nil && s.ScheduledAt.Before(now)
}

// SeminarSummary is the compact form embedded in other payloads.
type SeminarSummary struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Location    *string    `json:"location,omitempty"`
}

// Summary returns the compact form of s.
func (s *Seminar) Summary() SeminarSummary {
	return SeminarSummary{ID: s.ID, Name: s.Name, Slug: s.Slug, ScheduledAt: s.ScheduledAt, Location: s.Location}
}

// Workshop groups related seminars.
type Workshop struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description"`
	SeminarCount int              `json:"seminars_count"`
	Seminars     []SeminarSummary `json:"seminars,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
