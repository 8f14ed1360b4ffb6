package config

import (
	"errors"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	CORSOrigin  string `mapstructure:"CORS_ORIGIN"`

	// Database, empty disables lobby history
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Lobby
	DefaultMaxPlayers int `mapstructure:"DEFAULT_MAX_PLAYERS"`
	HistoryBuffer     int `mapstructure:"HISTORY_BUFFER"`
}

var defaults = map[string]any{
	"PORT":                "3000",
	"ENVIRONMENT":         "development",
	"LOG_LEVEL":           "info",
	"CORS_ORIGIN":         "*",
	"DATABASE_URL":        "",
	"DEFAULT_MAX_PLAYERS": 8,
	"HISTORY_BUFFER":      256,
}

// Load reads configuration from an optional .env file in the working
// directory, overridden by environment variables
func Load() (*Config, error) {
	return load(".")
}

func load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "failed to read .env")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "failed to decode config")
	}

	if cfg.DefaultMaxPlayers < domain.MinLobbyPlayers || cfg.DefaultMaxPlayers > domain.MaxLobbyPlayers {
		return nil, eris.Errorf("DEFAULT_MAX_PLAYERS must be between %d and %d, got %d",
			domain.MinLobbyPlayers, domain.MaxLobbyPlayers, cfg.DefaultMaxPlayers)
	}
	if cfg.HistoryBuffer < 1 {
		return nil, eris.Errorf("HISTORY_BUFFER must be positive, got %d", cfg.HistoryBuffer)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// HistoryEnabled reports whether lobby history is persisted
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}
