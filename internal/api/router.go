package api

import (
	"net/http"

	"github.com/dom/lobby-broker/internal/api/handlers"
	"github.com/dom/lobby-broker/internal/api/middleware"
	"github.com/dom/lobby-broker/internal/config"
	"github.com/dom/lobby-broker/internal/lobby"
	"github.com/dom/lobby-broker/internal/service"
	"github.com/dom/lobby-broker/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func NewRouter(cfg *config.Config, store *lobby.Store, hub *websocket.LobbyHub, services *service.Services, logger logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS(cfg.CORSOrigin))

	// Health check
	r.Get("/health", handlers.Health)

	// Initialize handlers
	lobbyHandler := handlers.NewLobbyHandler(store)
	historyHandler := handlers.NewHistoryHandler(services.History, logger)
	statsHandler := handlers.NewStatsHandler(store, hub, services.History)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.CORSOrigin, logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/lobbies", func(r chi.Router) {
			r.Get("/", lobbyHandler.List)
			r.Get("/{code}", lobbyHandler.GetByCode)
			r.Get("/{id}/history", historyHandler.Get)
		})

		r.Get("/stats", statsHandler.Get)

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
