package handlers

import (
	"net/http"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type HistoryHandler struct {
	history *service.HistoryService
	logger  logrus.FieldLogger
}

// NewHistoryHandler creates the handler. history is nil when no database is configured.
func NewHistoryHandler(history *service.HistoryService, logger logrus.FieldLogger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

type HistoryResponse struct {
	LobbyID string               `json:"lobbyId"`
	Events  []*domain.LobbyEvent `json:"events"`
}

func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "Lobby history is disabled", http.StatusNotFound)
		return
	}

	lobbyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid lobby ID", http.StatusBadRequest)
		return
	}

	events, err := h.history.Events(r.Context(), lobbyID)
	if err != nil {
		h.logger.Errorf("ERROR [handlers.HistoryHandler.Get] lobby %s: %v", lobbyID, err)
		http.Error(w, "Failed to load lobby history", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*domain.LobbyEvent{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{LobbyID: lobbyID.String(), Events: events})
}
