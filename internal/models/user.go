package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmailTaken is returned when an email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSpeaker Role = "speaker"
	RoleUser    Role = "user"
)

// User represents a platform user. Speakers are users with RoleSpeaker.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	Role        Role      `json:"role"`
	Institution string    `json:"institution,omitempty"`
	Description string    `json:"description,omitempty"`
	CourseID    *int64    `json:"course_id,omitempty"`
	GoogleID    *string   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	Institution string    `json:"institution,omitempty"`
	Description string    `json:"description,omitempty"`
	CourseID    *int64    `json:"course_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Institution: u.Institution,
		Description: u.Description,
		CourseID:    u.CourseID,
		CreatedAt:   u.CreatedAt,
	}
}

// Course is an academic course a user may belong to.
type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
