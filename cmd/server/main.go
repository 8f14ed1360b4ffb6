package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dom/lobby-broker/internal/api"
	"github.com/dom/lobby-broker/internal/config"
	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/lobby"
	"github.com/dom/lobby-broker/internal/protocol"
	"github.com/dom/lobby-broker/internal/repository"
	"github.com/dom/lobby-broker/internal/repository/postgres"
	"github.com/dom/lobby-broker/internal/service"
	"github.com/dom/lobby-broker/internal/websocket"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	configureLogger(logger, cfg)

	// Lobby history is optional
	var repos *repository.Repositories
	if cfg.HistoryEnabled() {
		db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			logger.Fatalf("failed to connect to database: %+v", err)
		}
		repos = postgres.NewRepositories(db)
	} else {
		logger.Info("DATABASE_URL not set, lobby history disabled")
	}

	services := service.NewServices(repos, cfg, logger)

	// Initialize lobby state and the WebSocket hub
	store := lobby.NewStore(lobby.WithDefaultSettings(domain.LobbySettings{
		MaxPlayers: cfg.DefaultMaxPlayers,
	}))
	hub := websocket.NewLobbyHub(logger)

	var recorder protocol.Recorder
	if services.History != nil {
		recorder = services.History
	}
	hub.SetDispatcher(protocol.NewHandler(store, hub, recorder, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workers sync.WaitGroup
	go hub.Run()
	if services.History != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			services.History.Run(ctx)
		}()
	}

	router := api.NewRouter(cfg, store, hub, services, logger)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"environment": cfg.Environment,
			"history":     cfg.HistoryEnabled(),
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}

	// Hijacked websocket connections are not closed by Shutdown
	hub.Stop()
	cancel()
	workers.Wait()

	logger.Info("Server stopped")
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	if cfg.IsDevelopment() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}
