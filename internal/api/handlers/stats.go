package handlers

import (
	"net/http"

	"github.com/dom/lobby-broker/internal/lobby"
	"github.com/dom/lobby-broker/internal/service"
	"github.com/dom/lobby-broker/internal/websocket"
)

type StatsHandler struct {
	store   *lobby.Store
	hub     *websocket.LobbyHub
	history *service.HistoryService
}

func NewStatsHandler(store *lobby.Store, hub *websocket.LobbyHub, history *service.HistoryService) *StatsHandler {
	return &StatsHandler{store: store, hub: hub, history: history}
}

type StatsResponse struct {
	Lobbies     int                   `json:"lobbies"`
	Players     int                   `json:"players"`
	Connections int                   `json:"connections"`
	Rooms       int                   `json:"rooms"`
	History     *service.HistoryStats `json:"history,omitempty"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	resp := StatsResponse{
		Lobbies:     stats.Lobbies,
		Players:     stats.Players,
		Connections: h.hub.ClientCount(),
		Rooms:       h.hub.RoomCount(),
	}
	if h.history != nil {
		historyStats := h.history.Stats()
		resp.History = &historyStats
	}

	writeJSON(w, http.StatusOK, resp)
}
