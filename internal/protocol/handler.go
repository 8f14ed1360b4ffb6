package protocol

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/lobby"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Error codes sent in error payloads
const (
	ErrCodeInvalidLobbyName  = "INVALID_LOBBY_NAME"
	ErrCodeInvalidPlayerName = "INVALID_PLAYER_NAME"
	ErrCodeInvalidSettings   = "INVALID_SETTINGS"
	ErrCodeInvalidCode       = "INVALID_CODE"
	ErrCodeLobbyNotFound     = "LOBBY_NOT_FOUND"
	ErrCodeCannotJoin        = "CANNOT_JOIN"
	ErrCodeJoinFailed        = "JOIN_FAILED"
	ErrCodeCreateFailed      = "CREATE_FAILED"
	ErrCodeNotHost           = "NOT_HOST"
	ErrCodePlayerNotFound    = "PLAYER_NOT_FOUND"
	ErrCodeCannotKickHost    = "CANNOT_KICK_HOST"
	ErrCodeUpdateFailed      = "UPDATE_FAILED"
	ErrCodeStartFailed       = "START_FAILED"
	ErrCodeReadyFailed       = "READY_FAILED"
	ErrCodeNotInLobby        = "NOT_IN_LOBBY"
	ErrCodeInvalidPayload    = "INVALID_PAYLOAD"
	ErrCodeUnknownEvent      = "UNKNOWN_EVENT"
)

// Reasons carried by lobby:closed
const (
	ReasonHostLeft         = "Host left the lobby"
	ReasonHostDisconnected = "Host disconnected"
	ReasonKicked           = "You were kicked from the lobby"
)

// Handler turns inbound events into store operations and outbound notifications.
// It is not safe for concurrent use; the transport serializes calls.
type Handler struct {
	store     *lobby.Store
	transport Transport
	recorder  Recorder
	logger    logrus.FieldLogger
}

// NewHandler creates a protocol handler. A nil recorder disables history.
func NewHandler(store *lobby.Store, transport Transport, recorder Recorder, logger logrus.FieldLogger) *Handler {
	if recorder == nil {
		recorder = NopRecorder
	}
	return &Handler{
		store:     store,
		transport: transport,
		recorder:  recorder,
		logger:    logger,
	}
}

// Handle dispatches one inbound event from connID
func (h *Handler) Handle(connID string, msg *Message) {
	switch msg.Type {
	case EventLobbyCreate:
		h.handleCreate(connID, msg)
	case EventLobbyJoin:
		h.handleJoin(connID, msg)
	case EventLobbyLeave:
		h.handleLeave(connID)
	case EventLobbyKick:
		h.handleKick(connID, msg)
	case EventLobbySettings:
		h.handleSettings(connID, msg)
	case EventLobbyStart:
		h.handleStart(connID)
	case EventPlayerReady:
		h.handleReady(connID, msg)
	default:
		h.logger.WithFields(logrus.Fields{"connId": connID, "type": msg.Type}).Debug("Unknown event type")
		h.sendError(connID, ErrCodeUnknownEvent, "Unknown event type")
	}
}

// Disconnect cleans up after a connection that went away. A connection
// outside any lobby is ignored.
func (h *Handler) Disconnect(connID string) {
	result, err := h.store.LeaveLobby(connID)
	if err != nil {
		return
	}
	h.logger.WithFields(logrus.Fields{
		"lobbyId":   result.LobbyID,
		"playerId":  result.PlayerID,
		"connId":    connID,
		"wasClosed": result.WasClosed,
	}).Info("Player disconnected")

	h.transport.Leave(connID, result.LobbyID.String())
	h.record(domain.LobbyEventLeft, result.LobbyID, result.Code, &result.PlayerID, result.PlayerName, map[string]any{"disconnected": true})
	h.announceDeparture(result, ReasonHostDisconnected)
}

func (h *Handler) handleCreate(connID string, msg *Message) {
	var payload CreateLobbyPayload
	if err := msg.DecodePayload(&payload); err != nil {
		h.sendError(connID, ErrCodeInvalidPayload, "Invalid lobby:create payload")
		return
	}

	if err := lobby.ValidateLobbyName(payload.Name); err != nil {
		h.sendError(connID, ErrCodeInvalidLobbyName, err.Error())
		return
	}
	if err := lobby.ValidatePlayerName(payload.PlayerName); err != nil {
		h.sendError(connID, ErrCodeInvalidPlayerName, err.Error())
		return
	}
	if payload.Settings != nil {
		if err := lobby.ValidateSettings(*payload.Settings); err != nil {
			h.sendError(connID, ErrCodeInvalidSettings, err.Error())
			return
		}
	}

	h.leaveCurrentLobby(connID)

	l, player, err := h.store.CreateLobby(connID, payload.PlayerName, payload.Name, payload.Settings)
	if err != nil {
		h.logger.WithError(err).WithField("connId", connID).Error("Failed to create lobby")
		h.sendError(connID, ErrCodeCreateFailed, "Failed to create lobby")
		return
	}

	h.transport.Join(connID, l.ID.String())
	h.transport.Send(connID, NewMessage(EventLobbyCreated, &LobbyPlayerPayload{
		Lobby:  h.lobbyInfo(l),
		Player: NewPlayerInfo(player),
	}))

	h.logger.WithFields(logrus.Fields{
		"lobbyId":  l.ID,
		"code":     l.Code,
		"playerId": player.ID,
		"connId":   connID,
	}).Info("Lobby created")
	h.record(domain.LobbyEventCreated, l.ID, l.Code, &player.ID, player.Name, map[string]any{
		"name":     l.Name,
		"settings": l.Settings,
	})
}

func (h *Handler) handleJoin(connID string, msg *Message) {
	var payload JoinLobbyPayload
	if err := msg.DecodePayload(&payload); err != nil {
		h.sendError(connID, ErrCodeInvalidPayload, "Invalid lobby:join payload")
		return
	}

	if err := lobby.ValidateJoinCode(payload.Code); err != nil {
		h.sendError(connID, ErrCodeInvalidCode, err.Error())
		return
	}
	if err := lobby.ValidatePlayerName(payload.PlayerName); err != nil {
		h.sendError(connID, ErrCodeInvalidPlayerName, err.Error())
		return
	}

	target := h.store.GetLobbyByCode(payload.Code)
	if target == nil {
		h.sendError(connID, ErrCodeLobbyNotFound, "Lobby not found")
		return
	}
	if err := lobby.ValidateCanJoin(target); err != nil {
		h.sendError(connID, ErrCodeCannotJoin, err.Error())
		return
	}
	if current := h.store.GetPlayerByConnection(connID); current != nil && *current.LobbyID == target.ID {
		h.sendError(connID, ErrCodeJoinFailed, "Already in this lobby")
		return
	}

	h.leaveCurrentLobby(connID)

	l, player, err := h.store.JoinLobby(connID, payload.PlayerName, payload.Code)
	if err != nil {
		h.logger.WithError(err).WithField("connId", connID).Debug("Join rejected by store")
		h.sendError(connID, ErrCodeJoinFailed, "Failed to join lobby")
		return
	}

	room := l.ID.String()
	info := h.lobbyInfo(l)
	playerInfo := NewPlayerInfo(player)

	h.transport.Join(connID, room)
	h.transport.Send(connID, NewMessage(EventLobbyJoined, &LobbyPlayerPayload{Lobby: info, Player: playerInfo}))
	h.transport.BroadcastExcept(room, NewMessage(EventPlayerJoined, &PlayerPayload{Player: playerInfo}), connID)
	h.transport.BroadcastExcept(room, NewMessage(EventLobbyUpdated, &LobbyPayload{Lobby: info}), connID)

	h.logger.WithFields(logrus.Fields{
		"lobbyId":  l.ID,
		"code":     l.Code,
		"playerId": player.ID,
		"connId":   connID,
		"players":  len(l.PlayerIDs),
	}).Info("Player joined lobby")
	h.record(domain.LobbyEventJoined, l.ID, l.Code, &player.ID, player.Name, nil)
}

func (h *Handler) handleLeave(connID string) {
	if !h.leaveCurrentLobby(connID) {
		h.sendError(connID, ErrCodeNotInLobby, "Not in a lobby")
	}
}

// leaveCurrentLobby runs the explicit leave path if connID is in a lobby
func (h *Handler) leaveCurrentLobby(connID string) bool {
	result, err := h.store.LeaveLobby(connID)
	if err != nil {
		return false
	}

	h.transport.Leave(connID, result.LobbyID.String())
	h.transport.Send(connID, NewMessage(EventLobbyLeft, &PlayerIDPayload{PlayerID: result.PlayerID.String()}))

	h.logger.WithFields(logrus.Fields{
		"lobbyId":   result.LobbyID,
		"playerId":  result.PlayerID,
		"connId":    connID,
		"wasClosed": result.WasClosed,
	}).Info("Player left lobby")

	h.record(domain.LobbyEventLeft, result.LobbyID, result.Code, &result.PlayerID, result.PlayerName, nil)
	h.announceDeparture(result, ReasonHostLeft)
	return true
}

func (h *Handler) handleKick(connID string, msg *Message) {
	var payload KickPlayerPayload
	if err := msg.DecodePayload(&payload); err != nil {
		h.sendError(connID, ErrCodeInvalidPayload, "Invalid lobby:kick payload")
		return
	}

	requester := h.store.GetPlayerByConnection(connID)
	if requester == nil || !requester.IsHost {
		h.sendError(connID, ErrCodeNotHost, "Only host can kick players")
		return
	}
	targetID, err := uuid.Parse(payload.PlayerID)
	if err != nil {
		h.sendError(connID, ErrCodePlayerNotFound, "Player not found in lobby")
		return
	}

	result, err := h.store.KickPlayer(connID, targetID)
	switch {
	case errors.Is(err, domain.ErrCannotKickHost):
		h.sendError(connID, ErrCodeCannotKickHost, "The host cannot be kicked")
		return
	case errors.Is(err, domain.ErrPlayerNotFound):
		h.sendError(connID, ErrCodePlayerNotFound, "Player not found in lobby")
		return
	case err != nil:
		h.sendError(connID, ErrCodeNotHost, "Only host can kick players")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"lobbyId":  result.LobbyID,
		"playerId": result.PlayerID,
		"hostId":   requester.ID,
	}).Info("Player kicked")

	h.transport.Leave(result.ConnectionID, result.LobbyID.String())
	h.transport.Send(result.ConnectionID, NewMessage(EventLobbyClosed, &ClosedPayload{Reason: ReasonKicked}))
	h.record(domain.LobbyEventKicked, result.LobbyID, result.Code, &result.PlayerID, result.PlayerName, map[string]any{
		"by": requester.ID.String(),
	})
	h.announceDeparture(result, ReasonHostLeft)
}

func (h *Handler) handleSettings(connID string, msg *Message) {
	var patch domain.SettingsPatch
	if err := msg.DecodePayload(&patch); err != nil {
		h.sendError(connID, ErrCodeInvalidPayload, "Invalid lobby:settings payload")
		return
	}
	if err := lobby.ValidateSettings(patch); err != nil {
		h.sendError(connID, ErrCodeInvalidSettings, err.Error())
		return
	}

	l, err := h.store.UpdateSettings(connID, patch)
	if err != nil {
		message := "Failed to update settings (not host?)"
		if errors.Is(err, domain.ErrMaxPlayersBelowCount) {
			message = "Max players cannot be lower than the current player count"
		}
		h.sendError(connID, ErrCodeUpdateFailed, message)
		return
	}

	h.transport.Broadcast(l.ID.String(), NewMessage(EventLobbyUpdated, &LobbyPayload{Lobby: h.lobbyInfo(l)}))

	h.logger.WithFields(logrus.Fields{"lobbyId": l.ID, "connId": connID}).Info("Lobby settings updated")
	h.record(domain.LobbyEventSettingsUpdated, l.ID, l.Code, nil, "", map[string]any{"settings": l.Settings})
}

func (h *Handler) handleStart(connID string) {
	l, err := h.store.StartGame(connID)
	if err != nil {
		h.sendError(connID, ErrCodeStartFailed, "Failed to start game (not host or not waiting?)")
		return
	}

	room := l.ID.String()
	h.transport.Broadcast(room, NewMessage(EventLobbyStarted, nil))
	h.transport.Broadcast(room, NewMessage(EventLobbyUpdated, &LobbyPayload{Lobby: h.lobbyInfo(l)}))

	h.logger.WithFields(logrus.Fields{
		"lobbyId": l.ID,
		"code":    l.Code,
		"players": len(l.PlayerIDs),
	}).Info("Game started")
	h.record(domain.LobbyEventStarted, l.ID, l.Code, nil, "", map[string]any{"players": len(l.PlayerIDs)})
}

func (h *Handler) handleReady(connID string, msg *Message) {
	var payload ReadyPayload
	if err := msg.DecodePayload(&payload); err != nil {
		h.sendError(connID, ErrCodeInvalidPayload, "Invalid player:ready payload")
		return
	}

	l, player, err := h.store.SetReady(connID, payload.Ready)
	if err != nil {
		h.sendError(connID, ErrCodeReadyFailed, "Failed to update ready state")
		return
	}

	room := l.ID.String()
	h.transport.Broadcast(room, NewMessage(EventPlayerUpdated, &PlayerPayload{Player: NewPlayerInfo(player)}))
	h.transport.Broadcast(room, NewMessage(EventLobbyUpdated, &LobbyPayload{Lobby: h.lobbyInfo(l)}))
}

// announceDeparture notifies whoever is left after a removal. The departed
// connection has already left the room.
func (h *Handler) announceDeparture(result *lobby.LeaveResult, closeReason string) {
	room := result.LobbyID.String()

	if result.WasClosed {
		closed := NewMessage(EventLobbyClosed, &ClosedPayload{Reason: closeReason})
		for _, p := range result.Removed {
			h.transport.Leave(p.ConnectionID, room)
			h.transport.Send(p.ConnectionID, closed)
		}

		h.record(domain.LobbyEventClosed, result.LobbyID, result.Code, nil, "", map[string]any{"reason": closeReason})
		h.logger.WithFields(logrus.Fields{
			"lobbyId": result.LobbyID,
			"code":    result.Code,
			"evicted": len(result.Removed),
		}).Info("Lobby closed")
		return
	}

	h.transport.BroadcastExcept(room, NewMessage(EventPlayerLeft, &PlayerIDPayload{PlayerID: result.PlayerID.String()}), result.ConnectionID)
	h.transport.BroadcastExcept(room, NewMessage(EventLobbyUpdated, &LobbyPayload{Lobby: h.lobbyInfo(result.Lobby)}), result.ConnectionID)
}

func (h *Handler) lobbyInfo(l *domain.Lobby) *LobbyInfo {
	return NewLobbyInfo(l, h.store.GetPlayersInLobby(l.ID))
}

func (h *Handler) sendError(connID, code, message string) {
	h.transport.Send(connID, NewMessage(EventError, &ErrorPayload{Code: code, Message: message}))
}

func (h *Handler) record(kind domain.LobbyEventKind, lobbyID uuid.UUID, code string, playerID *uuid.UUID, playerName string, detail map[string]any) {
	event := &domain.LobbyEvent{
		LobbyID:    lobbyID,
		Code:       code,
		Kind:       kind,
		PlayerID:   playerID,
		PlayerName: playerName,
		CreatedAt:  time.Now(),
	}
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			h.logger.WithError(err).WithField("kind", kind).Warn("Dropping unencodable history detail")
		} else {
			event.Detail = datatypes.JSON(data)
		}
	}
	h.recorder.Record(event)
}
