package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dom/lobby-broker/internal/protocol"
	gorillaWS "github.com/gorilla/websocket"
)

// Message is an inbound envelope as a client sees it
type Message struct {
	Type      protocol.EventType `json:"type"`
	Payload   json.RawMessage    `json:"payload"`
	Timestamp int64              `json:"timestamp"`
}

// Decode unmarshals the payload into v
func (m *Message) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(m.Payload, v); err != nil {
		t.Fatalf("failed to decode %s payload: %v", m.Type, err)
	}
}

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *Message, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.errors <- err
			continue
		}

		select {
		case c.messages <- &msg:
		case <-c.done:
			return
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// Send writes an event with the given payload
func (c *WSClient) Send(eventType protocol.EventType, payload interface{}) {
	c.t.Helper()
	c.SendRaw(protocol.NewMessage(eventType, payload))
}

// SendRaw writes v as a JSON text frame
func (c *WSClient) SendRaw(v interface{}) {
	c.t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(gorillaWS.TextMessage, data); err != nil {
		c.t.Fatalf("failed to send message: %v", err)
	}
}

// CreateLobby sends lobby:create
func (c *WSClient) CreateLobby(name, playerName string) {
	c.Send(protocol.EventLobbyCreate, &protocol.CreateLobbyPayload{Name: name, PlayerName: playerName})
}

// JoinLobby sends lobby:join
func (c *WSClient) JoinLobby(code, playerName string) {
	c.Send(protocol.EventLobbyJoin, &protocol.JoinLobbyPayload{Code: code, PlayerName: playerName})
}

// LeaveLobby sends lobby:leave
func (c *WSClient) LeaveLobby() {
	c.Send(protocol.EventLobbyLeave, nil)
}

// Kick sends lobby:kick
func (c *WSClient) Kick(playerID string) {
	c.Send(protocol.EventLobbyKick, &protocol.KickPlayerPayload{PlayerID: playerID})
}

// StartGame sends lobby:start
func (c *WSClient) StartGame() {
	c.Send(protocol.EventLobbyStart, nil)
}

// Ready sends player:ready
func (c *WSClient) Ready(ready bool) {
	c.Send(protocol.EventPlayerReady, &protocol.ReadyPayload{Ready: ready})
}

// ExpectMessage waits for the next message and requires it to have msgType
func (c *WSClient) ExpectMessage(msgType protocol.EventType, timeout time.Duration) *Message {
	c.t.Helper()

	msg := c.ExpectAnyMessage(timeout)
	if msg.Type != msgType {
		c.t.Fatalf("expected %s, got %s: %s", msgType, msg.Type, string(msg.Payload))
	}
	return msg
}

// ExpectLobbyPlayer waits for lobby:created or lobby:joined and decodes it
func (c *WSClient) ExpectLobbyPlayer(msgType protocol.EventType, timeout time.Duration) *protocol.LobbyPlayerPayload {
	c.t.Helper()

	var payload protocol.LobbyPlayerPayload
	c.ExpectMessage(msgType, timeout).Decode(c.t, &payload)
	return &payload
}

// ExpectLobbyUpdated waits for lobby:updated and decodes it
func (c *WSClient) ExpectLobbyUpdated(timeout time.Duration) *protocol.LobbyInfo {
	c.t.Helper()

	var payload protocol.LobbyPayload
	c.ExpectMessage(protocol.EventLobbyUpdated, timeout).Decode(c.t, &payload)
	return payload.Lobby
}

// ExpectClosed waits for lobby:closed and returns its reason
func (c *WSClient) ExpectClosed(timeout time.Duration) string {
	c.t.Helper()

	var payload protocol.ClosedPayload
	c.ExpectMessage(protocol.EventLobbyClosed, timeout).Decode(c.t, &payload)
	return payload.Reason
}

// ExpectErrorWithCode waits for an error message with the given code
func (c *WSClient) ExpectErrorWithCode(code string, timeout time.Duration) *protocol.ErrorPayload {
	c.t.Helper()

	var payload protocol.ErrorPayload
	c.ExpectMessage(protocol.EventError, timeout).Decode(c.t, &payload)
	if payload.Code != code {
		c.t.Fatalf("expected error code %s, got %s (%s)", code, payload.Code, payload.Message)
	}
	return &payload
}

// ExpectAnyMessage waits for any message to arrive and returns it
func (c *WSClient) ExpectAnyMessage(timeout time.Duration) *Message {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg == nil {
			c.t.Fatal("connection closed while waiting for message")
		}
		return msg
	case err := <-c.errors:
		c.t.Fatalf("error while waiting for message: %v", err)
	case <-time.After(timeout):
		c.t.Fatal("timeout waiting for any message")
	}
	return nil
}

// ExpectNoMessage verifies no message arrives within timeout
func (c *WSClient) ExpectNoMessage(timeout time.Duration) {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg != nil {
			c.t.Fatalf("unexpected message received: %s", msg.Type)
		}
	case <-time.After(timeout):
	}
}
