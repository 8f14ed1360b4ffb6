package domain

import "errors"

// ErrValidation is wrapped by every input validation failure
var ErrValidation = errors.New("validation failed")

// Lobby store errors
var (
	ErrLobbyNotFound        = errors.New("lobby not found")
	ErrLobbyFull            = errors.New("lobby is full")
	ErrLobbyNotWaiting      = errors.New("lobby is not accepting players")
	ErrAlreadyInLobby       = errors.New("connection is already in a lobby")
	ErrNotInLobby           = errors.New("connection is not in a lobby")
	ErrNotHost              = errors.New("only the host can perform this action")
	ErrPlayerNotFound       = errors.New("player not found in lobby")
	ErrCannotKickHost       = errors.New("the host cannot be kicked")
	ErrMaxPlayersBelowCount = errors.New("max players cannot be lower than the current player count")
)
