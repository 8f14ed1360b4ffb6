package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LobbyEventBuilder creates history events with a builder pattern
type LobbyEventBuilder struct {
	lobbyID    uuid.UUID
	code       string
	kind       domain.LobbyEventKind
	playerID   *uuid.UUID
	playerName string
	detail     map[string]any
	createdAt  time.Time
}

// NewLobbyEventBuilder creates a builder for a "created" event in a fresh lobby
func NewLobbyEventBuilder() *LobbyEventBuilder {
	return &LobbyEventBuilder{
		lobbyID:   uuid.New(),
		code:      "TEST-0001",
		kind:      domain.LobbyEventCreated,
		createdAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// WithLobby sets the lobby id and code
func (b *LobbyEventBuilder) WithLobby(id uuid.UUID, code string) *LobbyEventBuilder {
	b.lobbyID = id
	b.code = code
	return b
}

// WithKind sets the event kind
func (b *LobbyEventBuilder) WithKind(kind domain.LobbyEventKind) *LobbyEventBuilder {
	b.kind = kind
	return b
}

// WithPlayer sets the acting player
func (b *LobbyEventBuilder) WithPlayer(id uuid.UUID, name string) *LobbyEventBuilder {
	b.playerID = &id
	b.playerName = name
	return b
}

// WithDetail sets the JSON detail
func (b *LobbyEventBuilder) WithDetail(detail map[string]any) *LobbyEventBuilder {
	b.detail = detail
	return b
}

// At sets the creation time
func (b *LobbyEventBuilder) At(t time.Time) *LobbyEventBuilder {
	b.createdAt = t.UTC().Truncate(time.Microsecond)
	return b
}

// Build returns the event without persisting it
func (b *LobbyEventBuilder) Build(t *testing.T) *domain.LobbyEvent {
	t.Helper()

	event := &domain.LobbyEvent{
		LobbyID:    b.lobbyID,
		Code:       b.code,
		Kind:       b.kind,
		PlayerID:   b.playerID,
		PlayerName: b.playerName,
		CreatedAt:  b.createdAt,
	}
	if b.detail != nil {
		data, err := json.Marshal(b.detail)
		if err != nil {
			t.Fatalf("failed to marshal event detail: %v", err)
		}
		event.Detail = datatypes.JSON(data)
	}
	return event
}
