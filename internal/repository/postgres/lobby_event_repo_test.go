package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/repository/postgres"
	"github.com/dom/lobby-broker/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLobbyEventRepository_CreateBatch(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewLobbyEventRepository(testDB.DB)
	ctx := context.Background()

	lobbyID := uuid.New()
	hostID := uuid.New()
	start := time.Now().Add(-time.Minute)

	events := []*domain.LobbyEvent{
		testutil.NewLobbyEventBuilder().
			WithLobby(lobbyID, "GAME-2024").
			WithPlayer(hostID, "Alice").
			WithDetail(map[string]any{"name": "Game Night", "maxPlayers": 8}).
			At(start).
			Build(t),
		testutil.NewLobbyEventBuilder().
			WithLobby(lobbyID, "GAME-2024").
			WithKind(domain.LobbyEventJoined).
			WithPlayer(uuid.New(), "Bob").
			At(start.Add(time.Second)).
			Build(t),
		testutil.NewLobbyEventBuilder().
			WithLobby(lobbyID, "GAME-2024").
			WithKind(domain.LobbyEventStarted).
			At(start.Add(2 * time.Second)).
			Build(t),
	}

	require.NoError(t, repo.CreateBatch(ctx, events))
	for _, e := range events {
		assert.NotEqual(t, uuid.Nil, e.ID)
	}

	got, err := repo.GetByLobbyID(ctx, lobbyID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.LobbyEventCreated, got[0].Kind)
	require.NotNil(t, got[0].PlayerID)
	assert.Equal(t, hostID, *got[0].PlayerID)
	assert.Equal(t, "Alice", got[0].PlayerName)

	var detail map[string]any
	require.NoError(t, json.Unmarshal(got[0].Detail, &detail))
	assert.Equal(t, "Game Night", detail["name"])

	assert.Equal(t, domain.LobbyEventJoined, got[1].Kind)
	assert.Equal(t, domain.LobbyEventStarted, got[2].Kind)
	assert.Nil(t, got[2].PlayerID)
}

func TestLobbyEventRepository_CreateBatchEmpty(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewLobbyEventRepository(testDB.DB)

	assert.NoError(t, repo.CreateBatch(context.Background(), nil))
}

func TestLobbyEventRepository_GetByLobbyID(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewLobbyEventRepository(testDB.DB)
	ctx := context.Background()

	lobbyA := uuid.New()
	lobbyB := uuid.New()
	now := time.Now()

	// inserted out of order
	require.NoError(t, repo.CreateBatch(ctx, []*domain.LobbyEvent{
		testutil.NewLobbyEventBuilder().WithLobby(lobbyA, "AAAA-0001").WithKind(domain.LobbyEventClosed).At(now).Build(t),
		testutil.NewLobbyEventBuilder().WithLobby(lobbyB, "BBBB-0002").At(now).Build(t),
		testutil.NewLobbyEventBuilder().WithLobby(lobbyA, "AAAA-0001").At(now.Add(-time.Second)).Build(t),
	}))

	tests := []struct {
		name      string
		lobbyID   uuid.UUID
		wantKinds []domain.LobbyEventKind
	}{
		{
			name:      "oldest first",
			lobbyID:   lobbyA,
			wantKinds: []domain.LobbyEventKind{domain.LobbyEventCreated, domain.LobbyEventClosed},
		},
		{
			name:      "other lobby isolated",
			lobbyID:   lobbyB,
			wantKinds: []domain.LobbyEventKind{domain.LobbyEventCreated},
		},
		{
			name:      "unknown lobby",
			lobbyID:   uuid.New(),
			wantKinds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByLobbyID(ctx, tt.lobbyID)
			require.NoError(t, err)
			require.Len(t, got, len(tt.wantKinds))
			for i, kind := range tt.wantKinds {
				assert.Equal(t, kind, got[i].Kind)
				assert.Equal(t, tt.lobbyID, got[i].LobbyID)
			}
		})
	}
}
