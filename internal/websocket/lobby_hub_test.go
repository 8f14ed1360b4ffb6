package websocket_test

import (
	"testing"
	"time"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/lobby"
	"github.com/dom/lobby-broker/internal/protocol"
	"github.com/dom/lobby-broker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wait = 2 * time.Second

func TestLobbyHub_GameNightFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)

	alice := testutil.NewWSClient(t, ts.WebSocketURL())
	alice.CreateLobby("Game Night", "Alice")
	created := alice.ExpectLobbyPlayer(protocol.EventLobbyCreated, wait)

	require.True(t, lobby.IsValidCodeFormat(created.Lobby.Code))
	assert.True(t, created.Player.IsHost)
	assert.Equal(t, created.Player.ID, created.Lobby.HostID)
	assert.Equal(t, 8, created.Lobby.Settings.MaxPlayers)

	bob := testutil.NewWSClient(t, ts.WebSocketURL())
	bob.JoinLobby(created.Lobby.Code, "Bob")
	joined := bob.ExpectLobbyPlayer(protocol.EventLobbyJoined, wait)
	assert.Len(t, joined.Lobby.PlayerIDs, 2)
	assert.False(t, joined.Player.IsHost)

	var announced protocol.PlayerPayload
	alice.ExpectMessage(protocol.EventPlayerJoined, wait).Decode(t, &announced)
	assert.Equal(t, "Bob", announced.Player.Name)
	assert.Len(t, alice.ExpectLobbyUpdated(wait).Players, 2)

	alice.StartGame()
	for _, c := range []*testutil.WSClient{alice, bob} {
		c.ExpectMessage(protocol.EventLobbyStarted, wait)
		assert.Equal(t, domain.LobbyStatusInGame, c.ExpectLobbyUpdated(wait).Status)
	}

	alice.Close()
	assert.Equal(t, protocol.ReasonHostDisconnected, bob.ExpectClosed(wait))

	assert.Eventually(t, func() bool {
		return ts.Store.Stats() == lobby.Stats{}
	}, wait, 10*time.Millisecond)
}

func TestLobbyHub_LeaveAndKick(t *testing.T) {
	ts := testutil.NewTestServer(t)

	host := testutil.NewWSClient(t, ts.WebSocketURL())
	host.CreateLobby("Kick Night", "Host")
	code := host.ExpectLobbyPlayer(protocol.EventLobbyCreated, wait).Lobby.Code

	guest := testutil.NewWSClient(t, ts.WebSocketURL())
	guest.JoinLobby(code, "Guest")
	guestInfo := guest.ExpectLobbyPlayer(protocol.EventLobbyJoined, wait).Player
	host.ExpectMessage(protocol.EventPlayerJoined, wait)
	host.ExpectLobbyUpdated(wait)

	other := testutil.NewWSClient(t, ts.WebSocketURL())
	other.JoinLobby(code, "Other")
	other.ExpectLobbyPlayer(protocol.EventLobbyJoined, wait)
	for _, c := range []*testutil.WSClient{host, guest} {
		c.ExpectMessage(protocol.EventPlayerJoined, wait)
		c.ExpectLobbyUpdated(wait)
	}

	// non-host kick is rejected
	other.Kick(guestInfo.ID)
	other.ExpectErrorWithCode(protocol.ErrCodeNotHost, wait)

	host.Kick(guestInfo.ID)
	assert.Equal(t, protocol.ReasonKicked, guest.ExpectClosed(wait))
	for _, c := range []*testutil.WSClient{host, other} {
		var left protocol.PlayerIDPayload
		c.ExpectMessage(protocol.EventPlayerLeft, wait).Decode(t, &left)
		assert.Equal(t, guestInfo.ID, left.PlayerID)
		assert.Len(t, c.ExpectLobbyUpdated(wait).PlayerIDs, 2)
	}
	guest.ExpectNoMessage(100 * time.Millisecond)

	other.LeaveLobby()
	other.ExpectMessage(protocol.EventLobbyLeft, wait)
	host.ExpectMessage(protocol.EventPlayerLeft, wait)
	assert.Len(t, host.ExpectLobbyUpdated(wait).PlayerIDs, 1)

	other.LeaveLobby()
	other.ExpectErrorWithCode(protocol.ErrCodeNotInLobby, wait)
}

func TestLobbyHub_MalformedFrames(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client := testutil.NewWSClient(t, ts.WebSocketURL())

	client.SendRaw("not an envelope")
	client.ExpectErrorWithCode(protocol.ErrCodeInvalidPayload, wait)

	client.Send("lobby:unknown", nil)
	client.ExpectErrorWithCode(protocol.ErrCodeUnknownEvent, wait)

	client.Send(protocol.EventLobbyJoin, map[string]any{"code": "nope", "playerName": "Bob"})
	payload := client.ExpectErrorWithCode(protocol.ErrCodeInvalidCode, wait)
	assert.Equal(t, "Invalid code format (expected ABCD-1234)", payload.Message)

	// the connection survives every rejection
	client.CreateLobby("Still Here", "Alice")
	client.ExpectLobbyPlayer(protocol.EventLobbyCreated, wait)
}

func TestLobbyHub_StopClosesClients(t *testing.T) {
	ts := testutil.NewTestServer(t)
	testutil.NewWSClient(t, ts.WebSocketURL())

	require.Eventually(t, func() bool { return ts.Hub.ClientCount() == 1 }, wait, 10*time.Millisecond)

	ts.Hub.Stop()
	assert.Equal(t, 0, ts.Hub.ClientCount())

	// a second Stop is a no-op
	ts.Hub.Stop()
	assert.Equal(t, 0, ts.Hub.RoomCount())
}
