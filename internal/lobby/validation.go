package lobby

import (
	"fmt"
	"strings"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	MaxLobbyNameLength  = 50
	MaxPlayerNameLength = 30
)

var validate = validator.New()

// ValidationError carries the message reported back to the client
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// ValidateLobbyName checks that a lobby name is present and at most 50 characters
func ValidateLobbyName(name string) error {
	return validateName(name, MaxLobbyNameLength, "Lobby name")
}

// ValidatePlayerName checks that a player name is present and at most 30 characters
func ValidatePlayerName(name string) error {
	return validateName(name, MaxPlayerNameLength, "Player name")
}

func validateName(name string, maxLen int, label string) error {
	trimmed := strings.TrimSpace(name)
	if err := validate.Var(trimmed, "required"); err != nil {
		return invalid(label + " is required")
	}
	// validator counts runes for strings
	if err := validate.Var(trimmed, fmt.Sprintf("max=%d", maxLen)); err != nil {
		return invalid(fmt.Sprintf("%s too long (max %d chars)", label, maxLen))
	}
	return nil
}

// ValidateJoinCode checks that a code was supplied and is well formed
func ValidateJoinCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return invalid("Lobby code is required")
	}
	if !IsValidCodeFormat(code) {
		return invalid("Invalid code format (expected ABCD-1234)")
	}
	return nil
}

// ValidateCanJoin checks that a lobby is waiting and has a free slot
func ValidateCanJoin(l *domain.Lobby) error {
	if l.Status != domain.LobbyStatusWaiting {
		return invalid("Lobby is not accepting players")
	}
	if l.IsFull() {
		return invalid("Lobby is full")
	}
	return nil
}

// ValidateSettings checks the fields present in a settings patch
func ValidateSettings(patch domain.SettingsPatch) error {
	if err := validate.Struct(patch); err != nil {
		return invalid(fmt.Sprintf("Max players must be between %d and %d", domain.MinLobbyPlayers, domain.MaxLobbyPlayers))
	}
	return nil
}
