package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dom/lobby-broker/internal/api"
	"github.com/dom/lobby-broker/internal/config"
	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/lobby"
	"github.com/dom/lobby-broker/internal/protocol"
	repoPostgres "github.com/dom/lobby-broker/internal/repository/postgres"
	"github.com/dom/lobby-broker/internal/service"
	"github.com/dom/lobby-broker/internal/websocket"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated
// connection. It skips the test under -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_lobby_broker"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %+v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"lobby_events"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Environment:       "test",
		LogLevel:          "debug",
		CORSOrigin:        "*",
		DefaultMaxPlayers: 8,
		HistoryBuffer:     64,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	Store    *lobby.Store
	Hub      *websocket.LobbyHub
	Services *service.Services
	Config   *config.Config
	Logs     *logtest.Hook
}

// NewTestServer starts the full HTTP and WebSocket stack without a database
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := TestConfig()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	store := lobby.NewStore(lobby.WithDefaultSettings(domain.LobbySettings{MaxPlayers: cfg.DefaultMaxPlayers}))
	hub := websocket.NewLobbyHub(log)
	hub.SetDispatcher(protocol.NewHandler(store, hub, nil, log))
	go hub.Run()

	services := service.NewServices(nil, cfg, log)
	router := api.NewRouter(cfg, store, hub, services, log)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Store:    store,
		Hub:      hub,
		Services: services,
		Config:   cfg,
		Logs:     hook,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket endpoint URL
func (ts *TestServer) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/api/v1/ws"
}
