package models

import (
	"time"

	"github.com/google/uuid"
)

// VirtualResult is a timed performance imported from Strava, not tied to an
// on-site registration. The Strava activity ID is unique so re-importing the
// same activity is a no-op. Distance and elapsed time are strictly positive;
// the sync layer drops anything else before it reaches the store.
type VirtualResult struct {
	ID                 uuid.UUID  `json:"id"`
	AthleteStravaID    int64      `json:"athlete_strava_id"`
	EventID            *uuid.UUID `json:"event_id,omitempty"` // optional virtual-event linkage
	StravaActivityID   string     `json:"strava_activity_id"`
	Name               string     `json:"name,omitempty"`
	DistanceKm         float64    `json:"distance_km"`
	ElapsedTimeSeconds int        `json:"elapsed_time_seconds"`
	ActivityDate       time.Time  `json:"activity_date"`
	CreatedAt          time.Time  `json:"created_at"`
}
