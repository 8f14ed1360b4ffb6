package service

import (
	"github.com/dom/lobby-broker/internal/config"
	"github.com/dom/lobby-broker/internal/repository"
	"github.com/sirupsen/logrus"
)

type Services struct {
	History *HistoryService
}

// NewServices wires the services backed by repos. repos is nil when no
// database is configured, in which case History is nil.
func NewServices(repos *repository.Repositories, cfg *config.Config, logger logrus.FieldLogger) *Services {
	services := &Services{}
	if repos != nil {
		services.History = NewHistoryService(repos.LobbyEvent, cfg.HistoryBuffer, logger)
	}
	return services
}
