package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a user's evaluation of a seminar they attended.
type Rating struct {
	ID        int64     `json:"id"`
	SeminarID uuid.UUID `json:"seminar_id"`
	UserID    uuid.UUID `json:"user_id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingEvaluation is an attended seminar with its rating, if any.
type PendingEvaluation struct {
	Seminar SeminarSummary `json:"seminar"`
	Rating  *Rating        `json:"rating"`
}
