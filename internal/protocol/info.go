package protocol

import (
	"github.com/dom/lobby-broker/internal/domain"
)

// LobbyInfo is the wire representation of a lobby
type LobbyInfo struct {
	ID        string               `json:"id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	HostID    string               `json:"hostId"`
	Status    domain.LobbyStatus   `json:"status"`
	Settings  domain.LobbySettings `json:"settings"`
	PlayerIDs []string             `json:"playerIds"`
	Players   []*PlayerInfo        `json:"players"`
	CreatedAt int64                `json:"createdAt"`
	UpdatedAt int64                `json:"updatedAt"`
}

// PlayerInfo is the wire representation of a player. The connection id is omitted.
type PlayerInfo struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	LobbyID  *string             `json:"lobbyId"`
	Status   domain.PlayerStatus `json:"status"`
	IsHost   bool                `json:"isHost"`
	JoinedAt int64               `json:"joinedAt"`
}

// NewLobbyInfo maps a lobby and its members to the wire format
func NewLobbyInfo(l *domain.Lobby, players []*domain.Player) *LobbyInfo {
	if l == nil {
		return nil
	}

	info := &LobbyInfo{
		ID:        l.ID.String(),
		Code:      l.Code,
		Name:      l.Name,
		HostID:    l.HostID.String(),
		Status:    l.Status,
		Settings:  l.Settings,
		PlayerIDs: make([]string, len(l.PlayerIDs)),
		Players:   make([]*PlayerInfo, 0, len(players)),
		CreatedAt: l.CreatedAt.UnixMilli(),
		UpdatedAt: l.UpdatedAt.UnixMilli(),
	}
	for i, id := range l.PlayerIDs {
		info.PlayerIDs[i] = id.String()
	}
	for _, p := range players {
		info.Players = append(info.Players, NewPlayerInfo(p))
	}
	return info
}

// NewPlayerInfo maps a player to the wire format
func NewPlayerInfo(p *domain.Player) *PlayerInfo {
	if p == nil {
		return nil
	}

	info := &PlayerInfo{
		ID:       p.ID.String(),
		Name:     p.Name,
		Status:   p.Status,
		IsHost:   p.IsHost,
		JoinedAt: p.JoinedAt.UnixMilli(),
	}
	if p.LobbyID != nil {
		lobbyID := p.LobbyID.String()
		info.LobbyID = &lobbyID
	}
	return info
}
