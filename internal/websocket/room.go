package websocket

// Room is the set of clients subscribed to one lobby's broadcasts.
// Rooms are owned by the hub and only touched with the hub lock held.
type Room struct {
	name    string
	clients map[string]*LobbyClient
}

// NewRoom creates an empty room
func NewRoom(name string) *Room {
	return &Room{
		name:    name,
		clients: make(map[string]*LobbyClient),
	}
}

// AddClient adds a client to the room
func (r *Room) AddClient(client *LobbyClient) {
	r.clients[client.connID] = client
}

// RemoveClient removes a client from the room
func (r *Room) RemoveClient(connID string) {
	delete(r.clients, connID)
}

// ClientCount returns the number of subscribed clients
func (r *Room) ClientCount() int {
	return len(r.clients)
}

// Has reports whether connID is subscribed
func (r *Room) Has(connID string) bool {
	_, ok := r.clients[connID]
	return ok
}

// BroadcastExcept queues data for every client except exceptConnID
func (r *Room) BroadcastExcept(data []byte, exceptConnID string) {
	for connID, client := range r.clients {
		if connID != exceptConnID {
			client.trySend(data)
		}
	}
}
