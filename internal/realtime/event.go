package realtime

type EventType string

const (
	EventMessageReceived EventType = "MessageReceived"
	EventMessageEdited   EventType = "MessageEdited"
	EventMessageDeleted  EventType = "MessageDeleted"
	EventRoomRenamed     EventType = "RoomRenamed"
)

// Event is what live clients receive. Channel is the room id; events are
// only ever fanned out to connections currently joined to that room.
type Event struct {
	Channel string    `json:"channel"`
	Event   EventType `json:"event"`
	Data    any       `json:"data,omitempty"`
}
