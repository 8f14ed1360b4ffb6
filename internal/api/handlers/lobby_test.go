package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dom/lobby-broker/internal/api/handlers"
	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/protocol"
	"github.com/dom/lobby-broker/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := get(t, ts.BaseURL()+"/health")
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var result handlers.HealthResponse
	testutil.AssertJSONResponse(t, resp, &result)
	assert.Equal(t, "ok", result.Status)
	assert.NotZero(t, result.Timestamp)
}

func TestLobbyHandler_List(t *testing.T) {
	ts := testutil.NewTestServer(t)

	public, _, err := ts.Store.CreateLobby("conn-1", "Alice", "Game Night", nil)
	require.NoError(t, err)

	private := true
	_, _, err = ts.Store.CreateLobby("conn-2", "Bob", "Secret Club", &domain.SettingsPatch{IsPrivate: &private})
	require.NoError(t, err)

	started, _, err := ts.Store.CreateLobby("conn-3", "Carol", "Already Playing", nil)
	require.NoError(t, err)
	_, err = ts.Store.StartGame("conn-3")
	require.NoError(t, err)
	require.NotNil(t, started)

	resp := get(t, ts.APIURL("/lobbies"))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var result handlers.LobbyListResponse
	testutil.AssertJSONResponse(t, resp, &result)
	require.Len(t, result.Lobbies, 1)
	assert.Equal(t, public.Code, result.Lobbies[0].Code)
	assert.Equal(t, "Game Night", result.Lobbies[0].Name)
	require.Len(t, result.Lobbies[0].Players, 1)
	assert.Equal(t, "Alice", result.Lobbies[0].Players[0].Name)
}

func TestLobbyHandler_GetByCode(t *testing.T) {
	ts := testutil.NewTestServer(t)

	l, _, err := ts.Store.CreateLobby("conn-1", "Alice", "Game Night", nil)
	require.NoError(t, err)

	tests := []struct {
		name           string
		code           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "existing lobby",
			code:           l.Code,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "lowercase code",
			code:           strings.ToLower(l.Code),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown code",
			code:           "ZZZZ-9999",
			expectedStatus: http.StatusNotFound,
			expectedError:  "Lobby not found",
		},
		{
			name:           "malformed code",
			code:           "NOPE",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid code format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.APIURL("/lobbies/"+tt.code))

			if tt.expectedError != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedError)
				return
			}

			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			var result protocol.LobbyPayload
			testutil.AssertJSONResponse(t, resp, &result)
			assert.Equal(t, l.ID.String(), result.Lobby.ID)
			assert.Equal(t, []string{result.Lobby.HostID}, result.Lobby.PlayerIDs)
		})
	}
}

func TestHistoryHandler_Disabled(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := get(t, ts.APIURL("/lobbies/"+uuid.NewString()+"/history"))
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "Lobby history is disabled")
}

func TestStatsHandler(t *testing.T) {
	ts := testutil.NewTestServer(t)

	l, _, err := ts.Store.CreateLobby("conn-1", "Alice", "Game Night", nil)
	require.NoError(t, err)
	_, _, err = ts.Store.JoinLobby("conn-2", "Bob", l.Code)
	require.NoError(t, err)

	resp := get(t, ts.APIURL("/stats"))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var result handlers.StatsResponse
	testutil.AssertJSONResponse(t, resp, &result)
	assert.Equal(t, 1, result.Lobbies)
	assert.Equal(t, 2, result.Players)
	assert.Equal(t, 0, result.Connections)
	assert.Nil(t, result.History)
}

