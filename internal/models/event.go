package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType distinguishes on-site races from virtual challenges.
type EventType string

const (
	EventOnSite  EventType = "on-site"
	EventVirtual EventType = "virtual"
)

// Event is a race event with its categories and distances.
type Event struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Location          string    `json:"location,omitempty"` // empty for virtual events
	Type              EventType `json:"type"`
	Date              time.Time `json:"date"`
	StravaSyncEnabled bool      `json:"strava_sync_enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Categories []EventCategory `json:"categories,omitempty"`
	Distances  []EventDistance `json:"distances,omitempty"`
}

// EventCategory is a named grouping within one event (e.g. "Elite", "Masters").
type EventCategory struct {
	ID      uuid.UUID `json:"id"`
	EventID uuid.UUID `json:"event_id"`
	Name    string    `json:"name"`
}

// EventDistance is a raced distance within one event.
type EventDistance struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	DistanceKm float64   `json:"distance_km"`
}
