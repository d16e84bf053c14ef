package models

import "time"

// Participant is a currently connected party that broadcasts reach.
type Participant struct {
	// ID is the unique identifier for the participant.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// ConnectedAt is when the participant joined.
	ConnectedAt time.Time `json:"connected_at"`
}
