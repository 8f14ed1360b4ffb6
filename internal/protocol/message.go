package protocol

import (
	"encoding/json"
	"time"

	"github.com/dom/lobby-broker/internal/domain"
)

// EventType identifies a protocol event
type EventType string

const (
	// Client -> Server
	EventLobbyCreate   EventType = "lobby:create"
	EventLobbyJoin     EventType = "lobby:join"
	EventLobbyLeave    EventType = "lobby:leave"
	EventLobbyKick     EventType = "lobby:kick"
	EventLobbySettings EventType = "lobby:settings"
	EventLobbyStart    EventType = "lobby:start"
	EventPlayerReady   EventType = "player:ready"

	// Server -> Client
	EventLobbyCreated  EventType = "lobby:created"
	EventLobbyJoined   EventType = "lobby:joined"
	EventLobbyLeft     EventType = "lobby:left"
	EventLobbyUpdated  EventType = "lobby:updated"
	EventLobbyClosed   EventType = "lobby:closed"
	EventLobbyStarted  EventType = "lobby:started"
	EventPlayerJoined  EventType = "player:joined"
	EventPlayerLeft    EventType = "player:left"
	EventPlayerUpdated EventType = "player:updated"
	EventError         EventType = "error"
)

// Message is the envelope for every event in both directions
type Message struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(eventType EventType, payload interface{}) *Message {
	return &Message{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// DecodePayload converts a loosely typed payload into dst
func (m *Message) DecodePayload(dst interface{}) error {
	if m.Payload == nil {
		return nil
	}
	if raw, ok := m.Payload.(json.RawMessage); ok {
		return json.Unmarshal(raw, dst)
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// ============== Inbound payloads ==============

// CreateLobbyPayload is sent with lobby:create
type CreateLobbyPayload struct {
	Name       string                `json:"name"`
	PlayerName string                `json:"playerName"`
	Settings   *domain.SettingsPatch `json:"settings,omitempty"`
}

// JoinLobbyPayload is sent with lobby:join
type JoinLobbyPayload struct {
	Code       string `json:"code"`
	PlayerName string `json:"playerName"`
}

// KickPlayerPayload is sent with lobby:kick
type KickPlayerPayload struct {
	PlayerID string `json:"playerId"`
}

// ReadyPayload is sent with player:ready
type ReadyPayload struct {
	Ready bool `json:"ready"`
}

// ============== Outbound payloads ==============

// LobbyPlayerPayload accompanies lobby:created and lobby:joined
type LobbyPlayerPayload struct {
	Lobby  *LobbyInfo  `json:"lobby"`
	Player *PlayerInfo `json:"player"`
}

// LobbyPayload accompanies lobby:updated
type LobbyPayload struct {
	Lobby *LobbyInfo `json:"lobby"`
}

// PlayerPayload accompanies player:joined and player:updated
type PlayerPayload struct {
	Player *PlayerInfo `json:"player"`
}

// PlayerIDPayload accompanies lobby:left and player:left
type PlayerIDPayload struct {
	PlayerID string `json:"playerId"`
}

// ClosedPayload accompanies lobby:closed
type ClosedPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload accompanies error
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
