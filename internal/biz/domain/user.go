package domain

import "time"

// Presence represents a user's chat presence status.
type Presence string

const (
	PresenceAvailable Presence = "available"
	PresenceAway      Presence = "away"
)

// User represents a chat platform user as seen by the core.
//
// The chat adapter owns this data; the core only reads it. ID is immutable,
// everything else may change between reads.
type User struct {
	ID           string
	Name         string
	Nickname     string
	Presence     Presence
	LastActivity time.Time // time of the user's last own message
}
