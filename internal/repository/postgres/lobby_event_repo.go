package postgres

import (
	"context"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type lobbyEventRepository struct {
	db *gorm.DB
}

func NewLobbyEventRepository(db *gorm.DB) *lobbyEventRepository {
	return &lobbyEventRepository{db: db}
}

func (r *lobbyEventRepository) CreateBatch(ctx context.Context, events []*domain.LobbyEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(events, 100).Error; err != nil {
		return eris.Wrapf(err, "failed to insert %d lobby events", len(events))
	}
	return nil
}

// GetByLobbyID returns the events of one lobby, oldest first
func (r *lobbyEventRepository) GetByLobbyID(ctx context.Context, lobbyID uuid.UUID) ([]*domain.LobbyEvent, error) {
	var events []*domain.LobbyEvent
	err := r.db.WithContext(ctx).
		Where("lobby_id = ?", lobbyID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load events for lobby %s", lobbyID)
	}
	return events, nil
}
