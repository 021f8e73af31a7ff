package entity

import "time"

// Player is the durable side of a participant: the client-chosen identity
// token that survives reconnects. The connection id is volatile and empty
// while the player is offline.
type Player struct {
	ID           string    `json:"id"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Admin        bool      `json:"admin,omitempty"`
	LastActivity time.Time `json:"last_activity,omitempty"`
}

// IsOnline reports whether a connection is currently bound to this player.
func (that *Player) IsOnline() bool {
	return that.ConnectionID != ""
}
