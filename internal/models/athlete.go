package models

import "time"

// Athlete is a participant sourced from Strava. Keyed by the Strava athlete ID
// rather than a local UUID so registrations and virtual results can reference
// the external identity directly.
type Athlete struct {
	StravaID          int64     `json:"strava_id"`
	Username          string    `json:"username,omitempty"`
	FirstName         string    `json:"firstname,omitempty"`
	LastName          string    `json:"lastname,omitempty"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	AccessToken       string    `json:"-"` // encrypted at rest by the auth layer; opaque here
	RefreshToken      string    `json:"-"`
	TokenExpiresAt    time.Time `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DisplayName returns "First Last" with empty parts dropped.
func (a Athlete) DisplayName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	case a.LastName != "":
		return a.LastName
	default:
		return a.Username
	}
}
