package postgres

import (
	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/repository"
	"github.com/rotisserie/eris"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the history database and migrates its schema.
// verbose enables gorm's SQL logging.
func NewConnection(databaseURL string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, eris.Wrap(err, "failed to open database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the history tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.LobbyEvent{}); err != nil {
		return eris.Wrap(err, "failed to migrate lobby_events")
	}
	return nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		LobbyEvent: NewLobbyEventRepository(db),
	}
}
