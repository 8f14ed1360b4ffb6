package protocol

import "github.com/dom/lobby-broker/internal/domain"

// Transport delivers messages to connections and tracks room membership.
// Rooms are named by lobby id. Delivery is fire-and-forget.
type Transport interface {
	Send(connID string, msg *Message)
	Join(connID, room string)
	Leave(connID, room string)
	Broadcast(room string, msg *Message)
	BroadcastExcept(room string, msg *Message, exceptConnID string)
}

// Recorder receives lobby lifecycle events. Record must not block.
type Recorder interface {
	Record(event *domain.LobbyEvent)
}

type nopRecorder struct{}

func (nopRecorder) Record(*domain.LobbyEvent) {}

// NopRecorder discards every event
var NopRecorder Recorder = nopRecorder{}
