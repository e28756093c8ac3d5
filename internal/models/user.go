package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is an admin-console user role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleTimer  Role = "timer" // race-day operator: dorsals, timers, finishes
	RoleViewer Role = "viewer"
)

// User is an admin-console user (event organizers and race-day operators).
// Athletes are not Users; they are Athlete records sourced from Strava.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
