package repository

import (
	"context"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/google/uuid"
)

type LobbyEventRepository interface {
	CreateBatch(ctx context.Context, events []*domain.LobbyEvent) error
	GetByLobbyID(ctx context.Context, lobbyID uuid.UUID) ([]*domain.LobbyEvent, error)
}

type Repositories struct {
	LobbyEvent LobbyEventRepository
}
