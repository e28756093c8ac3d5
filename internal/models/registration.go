package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed" // e.g. payment received
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// Registration records an athlete's intent to race one event/category/distance
// combination. At most one registration exists per (athlete, event, category,
// distance); a RaceResult is created 1:1 alongside it.
type Registration struct {
	ID              uuid.UUID          `json:"id"`
	AthleteStravaID int64              `json:"athlete_strava_id"`
	EventID         uuid.UUID          `json:"event_id"`
	CategoryID      uuid.UUID          `json:"category_id"`
	DistanceID      uuid.UUID          `json:"distance_id"`
	Status          RegistrationStatus `json:"status"`
	PaymentProofKey string             `json:"payment_proof_key,omitempty"` // S3 object key
	RegisteredAt    time.Time          `json:"registered_at"`

	// Eager-loaded context for display; nil when not requested.
	Athlete  *Athlete       `json:"athlete,omitempty"`
	Event    *Event         `json:"event,omitempty"`
	Category *EventCategory `json:"category,omitempty"`
	Distance *EventDistance `json:"distance,omitempty"`
}
