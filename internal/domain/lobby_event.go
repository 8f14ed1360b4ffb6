package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LobbyEventKind names a recorded lobby lifecycle transition
type LobbyEventKind string

const (
	LobbyEventCreated         LobbyEventKind = "created"
	LobbyEventJoined          LobbyEventKind = "joined"
	LobbyEventLeft            LobbyEventKind = "left"
	LobbyEventKicked          LobbyEventKind = "kicked"
	LobbyEventSettingsUpdated LobbyEventKind = "settings_updated"
	LobbyEventStarted         LobbyEventKind = "started"
	LobbyEventClosed          LobbyEventKind = "closed"
)

// LobbyEvent is one row of the write-only lobby history
type LobbyEvent struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	LobbyID    uuid.UUID      `json:"lobbyId" gorm:"type:uuid;not null;index"`
	Code       string         `json:"code" gorm:"size:9;not null;index"`
	Kind       LobbyEventKind `json:"kind" gorm:"type:varchar(30);not null"`
	PlayerID   *uuid.UUID     `json:"playerId" gorm:"type:uuid"`
	PlayerName string         `json:"playerName" gorm:"size:30"`
	Detail     datatypes.JSON `json:"detail" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// TableName returns the table name for GORM
func (LobbyEvent) TableName() string {
	return "lobby_events"
}
