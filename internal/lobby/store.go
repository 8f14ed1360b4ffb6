package lobby

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/google/uuid"
)

// DefaultMaxPlayers is used when no default settings are configured
const DefaultMaxPlayers = 8

// Store is the in-memory registry of live lobbies and their players.
//
// Every exported method holds the store mutex for its whole
// read-modify-write span. Values returned to callers are copies; the
// indexes are never shared.
type Store struct {
	mu           sync.Mutex
	lobbies      map[uuid.UUID]*domain.Lobby
	players      map[uuid.UUID]*domain.Player
	lobbyByCode  map[string]uuid.UUID
	playerByConn map[string]uuid.UUID

	defaults     domain.LobbySettings
	generateCode func() string
	now          func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithDefaultSettings sets the settings new lobbies start from
func WithDefaultSettings(settings domain.LobbySettings) Option {
	return func(s *Store) {
		s.defaults = settings
	}
}

// WithCodeGenerator replaces the lobby code generator
func WithCodeGenerator(fn func() string) Option {
	return func(s *Store) {
		s.generateCode = fn
	}
}

// WithClock replaces the time source
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		s.now = fn
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		lobbies:      make(map[uuid.UUID]*domain.Lobby),
		players:      make(map[uuid.UUID]*domain.Player),
		lobbyByCode:  make(map[string]uuid.UUID),
		playerByConn: make(map[string]uuid.UUID),
		defaults:     domain.LobbySettings{MaxPlayers: DefaultMaxPlayers},
		generateCode: GenerateCode,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LeaveResult describes the outcome of a player leaving, being kicked or disconnecting
type LeaveResult struct {
	LobbyID      uuid.UUID
	Code         string
	PlayerID     uuid.UUID
	PlayerName   string
	ConnectionID string
	WasHost      bool
	WasClosed    bool
	// Lobby is the updated lobby, nil when the lobby was closed
	Lobby *domain.Lobby
	// Removed holds the other members purged by a closure
	Removed []*domain.Player
}

// Stats is a point-in-time count of live objects
type Stats struct {
	Lobbies int `json:"lobbies"`
	Players int `json:"players"`
}

// ============== Mutations ==============

// CreateLobby allocates a host player and a lobby with a fresh unique code
func (s *Store) CreateLobby(connID, playerName, lobbyName string, patch *domain.SettingsPatch) (*domain.Lobby, *domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.playerByConn[connID]; exists {
		return nil, nil, domain.ErrAlreadyInLobby
	}

	now := s.now()
	settings := s.defaults
	settings.CustomData = nil
	if patch != nil {
		settings = patch.Apply(settings)
	}

	player := s.newPlayer(connID, playerName, now)
	player.IsHost = true

	l := &domain.Lobby{
		ID:        uuid.New(),
		Code:      s.uniqueCode(),
		Name:      strings.TrimSpace(lobbyName),
		HostID:    player.ID,
		Status:    domain.LobbyStatusWaiting,
		Settings:  settings,
		PlayerIDs: []uuid.UUID{player.ID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	player.LobbyID = &l.ID

	s.lobbies[l.ID] = l
	s.lobbyByCode[l.Code] = l.ID
	s.players[player.ID] = player
	s.playerByConn[connID] = player.ID

	return l.Clone(), player.Clone(), nil
}

// JoinLobby adds a non-host player to the lobby with the given code.
// Capacity and status are checked again here even though callers validate first.
func (s *Store) JoinLobby(connID, playerName, code string) (*domain.Lobby, *domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobbyID, ok := s.lobbyByCode[NormalizeCode(code)]
	if !ok {
		return nil, nil, domain.ErrLobbyNotFound
	}
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, nil, domain.ErrLobbyNotFound
	}
	if _, exists := s.playerByConn[connID]; exists {
		return nil, nil, domain.ErrAlreadyInLobby
	}
	if l.Status != domain.LobbyStatusWaiting {
		return nil, nil, domain.ErrLobbyNotWaiting
	}
	if l.IsFull() {
		return nil, nil, domain.ErrLobbyFull
	}

	player := s.newPlayer(connID, playerName, s.now())
	player.LobbyID = &l.ID

	l.PlayerIDs = append(l.PlayerIDs, player.ID)
	s.touch(l)

	s.players[player.ID] = player
	s.playerByConn[connID] = player.ID

	return l.Clone(), player.Clone(), nil
}

// LeaveLobby removes the connection's player from its lobby. The lobby is
// closed when the host leaves or nobody is left.
func (s *Store) LeaveLobby(connID string) (*LeaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.playerByConnLocked(connID)
	if player == nil {
		return nil, domain.ErrNotInLobby
	}
	return s.removePlayerLocked(player)
}

// KickPlayer removes targetID from the lobby hosted by hostConnID
func (s *Store) KickPlayer(hostConnID string, targetID uuid.UUID) (*LeaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	host := s.playerByConnLocked(hostConnID)
	if host == nil {
		return nil, domain.ErrNotInLobby
	}
	if !host.IsHost {
		return nil, domain.ErrNotHost
	}
	if targetID == host.ID {
		return nil, domain.ErrCannotKickHost
	}
	l := s.lobbies[*host.LobbyID]
	if l == nil || !l.HasPlayer(targetID) {
		return nil, domain.ErrPlayerNotFound
	}
	target, ok := s.players[targetID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return s.removePlayerLocked(target)
}

// CloseLobby purges a lobby and all of its members. Unknown ids are ignored.
func (s *Store) CloseLobby(lobbyID uuid.UUID) []*domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(lobbyID)
}

// UpdateSettings merges patch into the settings of the lobby hosted by connID
func (s *Store) UpdateSettings(connID string, patch domain.SettingsPatch) (*domain.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.hostedLobbyLocked(connID)
	if err != nil {
		return nil, err
	}
	if patch.MaxPlayers != nil && *patch.MaxPlayers < len(l.PlayerIDs) {
		return nil, domain.ErrMaxPlayersBelowCount
	}

	l.Settings = patch.Apply(l.Settings)
	s.touch(l)
	return l.Clone(), nil
}

// StartGame moves a waiting lobby hosted by connID to in-game
func (s *Store) StartGame(connID string) (*domain.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.hostedLobbyLocked(connID)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.LobbyStatusWaiting {
		return nil, domain.ErrLobbyNotWaiting
	}

	l.Status = domain.LobbyStatusInGame
	for _, pid := range l.PlayerIDs {
		if p, ok := s.players[pid]; ok {
			p.Status = domain.PlayerStatusInGame
		}
	}
	s.touch(l)
	return l.Clone(), nil
}

// SetReady toggles the connection's player between connected and ready
func (s *Store) SetReady(connID string, ready bool) (*domain.Lobby, *domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.playerByConnLocked(connID)
	if player == nil {
		return nil, nil, domain.ErrNotInLobby
	}
	l := s.lobbies[*player.LobbyID]
	if l == nil {
		return nil, nil, domain.ErrNotInLobby
	}
	if l.Status != domain.LobbyStatusWaiting {
		return nil, nil, domain.ErrLobbyNotWaiting
	}

	if ready {
		player.Status = domain.PlayerStatusReady
	} else {
		player.Status = domain.PlayerStatusConnected
	}
	s.touch(l)
	return l.Clone(), player.Clone(), nil
}

// ============== Reads ==============

// GetLobby returns the lobby with the given id, or nil
func (s *Store) GetLobby(id uuid.UUID) *domain.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lobbies[id].Clone()
}

// GetLobbyByCode returns the lobby with the given (unnormalized) code, or nil
func (s *Store) GetLobbyByCode(code string) *domain.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.lobbyByCode[NormalizeCode(code)]
	if !ok {
		return nil
	}
	return s.lobbies[id].Clone()
}

// GetPlayersInLobby returns the members of a lobby in join order
func (s *Store) GetPlayersInLobby(lobbyID uuid.UUID) []*domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playersInLobbyLocked(lobbyID)
}

// GetPlayerByConnection returns the player bound to a connection, or nil
func (s *Store) GetPlayerByConnection(connID string) *domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerByConnLocked(connID).Clone()
}

// ListPublicLobbies returns waiting, non-private lobbies, oldest first
func (s *Store) ListPublicLobbies() []*domain.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Lobby, 0)
	for _, l := range s.lobbies {
		if l.Settings.IsPrivate || l.Status != domain.LobbyStatusWaiting {
			continue
		}
		result = append(result, l.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Stats returns the number of live lobbies and players
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Lobbies: len(s.lobbies), Players: len(s.players)}
}

// ============== Internals (mutex held) ==============

func (s *Store) newPlayer(connID, name string, now time.Time) *domain.Player {
	return &domain.Player{
		ID:           uuid.New(),
		ConnectionID: connID,
		Name:         strings.TrimSpace(name),
		Status:       domain.PlayerStatusConnected,
		JoinedAt:     now,
	}
}

func (s *Store) uniqueCode() string {
	for {
		code := s.generateCode()
		if _, taken := s.lobbyByCode[code]; !taken {
			return code
		}
	}
}

// touch bumps UpdatedAt without ever moving it backwards
func (s *Store) touch(l *domain.Lobby) {
	t := s.now()
	if t.Before(l.UpdatedAt) {
		t = l.UpdatedAt
	}
	l.UpdatedAt = t
}

func (s *Store) playerByConnLocked(connID string) *domain.Player {
	id, ok := s.playerByConn[connID]
	if !ok {
		return nil
	}
	p := s.players[id]
	if p == nil || p.LobbyID == nil {
		return nil
	}
	return p
}

func (s *Store) hostedLobbyLocked(connID string) (*domain.Lobby, error) {
	player := s.playerByConnLocked(connID)
	if player == nil {
		return nil, domain.ErrNotInLobby
	}
	if !player.IsHost {
		return nil, domain.ErrNotHost
	}
	l := s.lobbies[*player.LobbyID]
	if l == nil {
		return nil, domain.ErrNotInLobby
	}
	return l, nil
}

func (s *Store) playersInLobbyLocked(lobbyID uuid.UUID) []*domain.Player {
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil
	}
	players := make([]*domain.Player, 0, len(l.PlayerIDs))
	for _, pid := range l.PlayerIDs {
		if p, ok := s.players[pid]; ok {
			players = append(players, p.Clone())
		}
	}
	return players
}

// removePlayerLocked is the single removal path shared by leave, kick and disconnect
func (s *Store) removePlayerLocked(player *domain.Player) (*LeaveResult, error) {
	l := s.lobbies[*player.LobbyID]
	if l == nil {
		delete(s.players, player.ID)
		delete(s.playerByConn, player.ConnectionID)
		return nil, domain.ErrNotInLobby
	}

	remaining := make([]uuid.UUID, 0, len(l.PlayerIDs))
	for _, pid := range l.PlayerIDs {
		if pid != player.ID {
			remaining = append(remaining, pid)
		}
	}
	l.PlayerIDs = remaining
	s.touch(l)

	delete(s.players, player.ID)
	delete(s.playerByConn, player.ConnectionID)

	result := &LeaveResult{
		LobbyID:      l.ID,
		Code:         l.Code,
		PlayerID:     player.ID,
		PlayerName:   player.Name,
		ConnectionID: player.ConnectionID,
		WasHost:      l.HostID == player.ID,
	}

	if result.WasHost || len(l.PlayerIDs) == 0 {
		result.Removed = s.closeLocked(l.ID)
		result.WasClosed = true
		return result, nil
	}

	result.Lobby = l.Clone()
	return result, nil
}

func (s *Store) closeLocked(lobbyID uuid.UUID) []*domain.Player {
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return nil
	}

	removed := make([]*domain.Player, 0, len(l.PlayerIDs))
	for _, pid := range l.PlayerIDs {
		p, ok := s.players[pid]
		if !ok {
			continue
		}
		delete(s.playerByConn, p.ConnectionID)
		delete(s.players, pid)
		removed = append(removed, p.Clone())
	}

	delete(s.lobbyByCode, l.Code)
	delete(s.lobbies, lobbyID)
	return removed
}
