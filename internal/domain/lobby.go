package domain

import (
	"time"

	"github.com/google/uuid"
)

// LobbyStatus represents the current state of a lobby
type LobbyStatus string

const (
	LobbyStatusWaiting LobbyStatus = "waiting"
	// LobbyStatusStarting is reserved; no transition produces it yet.
	LobbyStatusStarting LobbyStatus = "starting"
	LobbyStatusInGame   LobbyStatus = "in-game"
	LobbyStatusClosed   LobbyStatus = "closed"
)

// Player count bounds for LobbySettings.MaxPlayers
const (
	MinLobbyPlayers = 2
	MaxLobbyPlayers = 100
)

// LobbySettings holds the host-editable configuration of a lobby
type LobbySettings struct {
	MaxPlayers int            `json:"maxPlayers"`
	IsPrivate  bool           `json:"isPrivate"`
	GameMode   string         `json:"gameMode,omitempty"`
	CustomData map[string]any `json:"customData,omitempty"`
}

// SettingsPatch is a partial LobbySettings update. Nil fields are left as they are.
type SettingsPatch struct {
	MaxPlayers *int           `json:"maxPlayers,omitempty" validate:"omitempty,min=2,max=100"`
	IsPrivate  *bool          `json:"isPrivate,omitempty"`
	GameMode   *string        `json:"gameMode,omitempty"`
	CustomData map[string]any `json:"customData,omitempty"`
}

// Apply merges the patch over s and returns the result. CustomData is
// replaced wholesale when present.
func (p SettingsPatch) Apply(s LobbySettings) LobbySettings {
	if p.MaxPlayers != nil {
		s.MaxPlayers = *p.MaxPlayers
	}
	if p.IsPrivate != nil {
		s.IsPrivate = *p.IsPrivate
	}
	if p.GameMode != nil {
		s.GameMode = *p.GameMode
	}
	if p.CustomData != nil {
		s.CustomData = copyCustomData(p.CustomData)
	}
	return s
}

// Lobby is a named, coded pre-game room with an ordered member list and one host
type Lobby struct {
	ID        uuid.UUID
	Code      string
	Name      string
	HostID    uuid.UUID
	Status    LobbyStatus
	Settings  LobbySettings
	PlayerIDs []uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsFull returns true if no more players fit in the lobby
func (l *Lobby) IsFull() bool {
	return len(l.PlayerIDs) >= l.Settings.MaxPlayers
}

// HasPlayer reports whether id is a member of the lobby
func (l *Lobby) HasPlayer(id uuid.UUID) bool {
	for _, pid := range l.PlayerIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the store
func (l *Lobby) Clone() *Lobby {
	if l == nil {
		return nil
	}
	c := *l
	c.PlayerIDs = append([]uuid.UUID(nil), l.PlayerIDs...)
	c.Settings.CustomData = copyCustomData(l.Settings.CustomData)
	return &c
}

func copyCustomData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
