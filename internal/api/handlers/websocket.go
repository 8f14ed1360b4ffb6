package handlers

import (
	"net/http"

	"github.com/dom/lobby-broker/internal/api/middleware"
	"github.com/dom/lobby-broker/internal/websocket"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type WebSocketHandler struct {
	hub      *websocket.LobbyHub
	upgrader ws.Upgrader
	logger   logrus.FieldLogger
}

func NewWebSocketHandler(hub *websocket.LobbyHub, allowedOrigin string, logger logrus.FieldLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowedOrigin, origin)
			},
		},
		logger: logger,
	}
}

// Handle upgrades the request and attaches a new connection to the hub.
// Every connection gets a fresh id; there is no other identity.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := websocket.NewLobbyClient(h.hub, conn, uuid.NewString())
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
