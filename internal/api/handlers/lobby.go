package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/lobby-broker/internal/lobby"
	"github.com/dom/lobby-broker/internal/protocol"
	"github.com/go-chi/chi/v5"
)

type LobbyHandler struct {
	store *lobby.Store
}

func NewLobbyHandler(store *lobby.Store) *LobbyHandler {
	return &LobbyHandler{store: store}
}

type LobbyListResponse struct {
	Lobbies []*protocol.LobbyInfo `json:"lobbies"`
}

// List returns every public lobby that still accepts players
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	lobbies := h.store.ListPublicLobbies()

	resp := LobbyListResponse{Lobbies: make([]*protocol.LobbyInfo, 0, len(lobbies))}
	for _, l := range lobbies {
		resp.Lobbies = append(resp.Lobbies, protocol.NewLobbyInfo(l, h.store.GetPlayersInLobby(l.ID)))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetByCode looks a live lobby up by its join code
func (h *LobbyHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := lobby.ValidateJoinCode(code); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	l := h.store.GetLobbyByCode(code)
	if l == nil {
		http.Error(w, "Lobby not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, protocol.LobbyPayload{
		Lobby: protocol.NewLobbyInfo(l, h.store.GetPlayersInLobby(l.ID)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
