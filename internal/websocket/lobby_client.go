package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dom/lobby-broker/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// LobbyClient wraps one WebSocket connection. Its connection id is the
// only identity a player has.
type LobbyClient struct {
	hub    *LobbyHub
	conn   *websocket.Conn
	send   chan []byte
	connID string
	logger logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
}

// NewLobbyClient creates a client for conn
func NewLobbyClient(hub *LobbyHub, conn *websocket.Conn, connID string) *LobbyClient {
	return &LobbyClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		connID: connID,
		logger: hub.logger.WithField("connId", connID),
	}
}

// ReadPump reads frames from the connection and forwards them to the hub.
// The hub is told about the disconnect when the read loop ends.
func (c *LobbyClient) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Warn("Websocket read error")
			}
			break
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Debug("Failed to unmarshal message")
			c.Send(protocol.NewMessage(protocol.EventError, &protocol.ErrorPayload{
				Code:    protocol.ErrCodeInvalidPayload,
				Message: "Malformed message",
			}))
			continue
		}

		if !c.hub.Dispatch(c, &msg) {
			return
		}
	}
}

// WritePump drains the send buffer to the connection and keeps it alive with pings
func (c *LobbyClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send encodes and queues a message for this client
func (c *LobbyClient) Send(msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.WithError(err).WithField("type", msg.Type).Error("Failed to marshal message")
		return
	}
	c.trySend(data)
}

// trySend queues data without blocking. A full buffer drops the frame.
func (c *LobbyClient) trySend(data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}

// Close marks the client as closed and closes its send channel
func (c *LobbyClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.send)
}

// ConnID returns the client's connection id
func (c *LobbyClient) ConnID() string {
	return c.connID
}
