package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus represents a player's presence in a lobby
type PlayerStatus string

const (
	PlayerStatusConnected PlayerStatus = "connected"
	PlayerStatusReady     PlayerStatus = "ready"
	PlayerStatusInGame    PlayerStatus = "in-game"
	// PlayerStatusDisconnected is never stored: a disconnect removes the player.
	PlayerStatusDisconnected PlayerStatus = "disconnected"
)

// Player is a lobby member bound to one transport connection
type Player struct {
	ID           uuid.UUID
	ConnectionID string
	Name         string
	LobbyID      *uuid.UUID
	Status       PlayerStatus
	IsHost       bool
	JoinedAt     time.Time
}

// Clone returns a copy safe to hand out of the store
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	if p.LobbyID != nil {
		id := *p.LobbyID
		c.LobbyID = &id
	}
	return &c
}
