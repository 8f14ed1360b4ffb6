package websocket

import (
	"encoding/json"
	"sync"

	"github.com/dom/lobby-broker/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Dispatcher consumes inbound events. Calls are made from the hub's Run
// goroutine only, one at a time.
type Dispatcher interface {
	Handle(connID string, msg *protocol.Message)
	Disconnect(connID string)
}

type inboundEvent struct {
	client *LobbyClient
	msg    *protocol.Message
}

// LobbyHub owns every WebSocket client and the lobby rooms they are
// subscribed to. It serializes all inbound events through Run and
// implements protocol.Transport for the outbound side.
type LobbyHub struct {
	clients    map[string]*LobbyClient
	rooms      map[string]*Room
	register   chan *LobbyClient
	unregister chan *LobbyClient
	inbound    chan *inboundEvent
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	stopped    bool

	dispatcher Dispatcher
	logger     logrus.FieldLogger

	mu sync.RWMutex
}

var _ protocol.Transport = (*LobbyHub)(nil)

// NewLobbyHub creates a hub. SetDispatcher must be called before Run.
func NewLobbyHub(logger logrus.FieldLogger) *LobbyHub {
	return &LobbyHub{
		clients:    make(map[string]*LobbyClient),
		rooms:      make(map[string]*Room),
		register:   make(chan *LobbyClient),
		unregister: make(chan *LobbyClient),
		inbound:    make(chan *inboundEvent, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.WithField("component", "lobby_hub"),
	}
}

// SetDispatcher sets the consumer of inbound events
func (h *LobbyHub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Run starts the hub event loop
func (h *LobbyHub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true

			for _, client := range h.clients {
				client.Close()
			}
			h.clients = make(map[string]*LobbyClient)
			h.rooms = make(map[string]*Room)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client.connID] = client
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{"connId": client.connID, "clients": count}).Debug("Client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.connID]
			if ok {
				delete(h.clients, client.connID)
				client.Close()
			}
			h.mu.Unlock()

			if ok {
				h.dispatcher.Disconnect(client.connID)
				h.dropFromRooms(client.connID)
			}

		case ev := <-h.inbound:
			h.mu.RLock()
			_, ok := h.clients[ev.client.connID]
			h.mu.RUnlock()
			if ok {
				h.dispatcher.Handle(ev.client.connID, ev.msg)
			}
		}
	}
}

// Stop closes every client and waits for Run to return
func (h *LobbyHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.done
}

// Register adds a client to the hub
func (h *LobbyHub) Register(client *LobbyClient) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client and triggers disconnect cleanup
func (h *LobbyHub) Unregister(client *LobbyClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Dispatch queues an inbound message. It returns false once the hub has stopped.
func (h *LobbyHub) Dispatch(client *LobbyClient, msg *protocol.Message) bool {
	select {
	case h.inbound <- &inboundEvent{client: client, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// ============== protocol.Transport ==============

// Send delivers a message to one connection
func (h *LobbyHub) Send(connID string, msg *protocol.Message) {
	h.mu.RLock()
	client := h.clients[connID]
	h.mu.RUnlock()

	if client != nil {
		client.Send(msg)
	}
}

// Join subscribes a connection to a room
func (h *LobbyHub) Join(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	r, exists := h.rooms[room]
	if !exists {
		r = NewRoom(room)
		h.rooms[room] = r
	}
	if r.Has(connID) {
		return
	}
	r.AddClient(client)
	h.logger.WithFields(logrus.Fields{"connId": connID, "room": room, "members": r.ClientCount()}).Debug("Joined room")
}

// Leave unsubscribes a connection from a room
func (h *LobbyHub) Leave(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[room]
	if !ok {
		return
	}
	r.RemoveClient(connID)
	if r.ClientCount() == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers a message to every connection in a room
func (h *LobbyHub) Broadcast(room string, msg *protocol.Message) {
	h.BroadcastExcept(room, msg, "")
}

// BroadcastExcept delivers a message to every connection in a room but one
func (h *LobbyHub) BroadcastExcept(room string, msg *protocol.Message, exceptConnID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).WithField("type", msg.Type).Error("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if r, ok := h.rooms[room]; ok {
		r.BroadcastExcept(data, exceptConnID)
	}
}

// ClientCount returns the number of connected clients
func (h *LobbyHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one subscriber
func (h *LobbyHub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *LobbyHub) dropFromRooms(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, r := range h.rooms {
		r.RemoveClient(connID)
		if r.ClientCount() == 0 {
			delete(h.rooms, name)
		}
	}
}
