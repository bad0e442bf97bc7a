package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/realtime"
)

// Emitter pushes an event to everyone attached to its channel.
// *realtime.Dispatcher satisfies this.
type Emitter interface {
	Emit(ctx context.Context, ev realtime.Event)
}

// RoomNotifier fans room-level side effects (edits, deletes, renames) out to
// live connections. Nil-safe so services can run without a dispatcher wired.
type RoomNotifier interface {
	MessageEdited(ctx context.Context, roomID uuid.UUID, msg *types.ChatMessage)
	MessageDeleted(ctx context.Context, roomID, messageID uuid.UUID)
	RoomRenamed(ctx context.Context, room *types.ChatRoom)
}

type roomNotifier struct {
	emit Emitter
}

func NewRoomNotifier(emit Emitter) RoomNotifier {
	return &roomNotifier{emit: emit}
}

func (n *roomNotifier) MessageEdited(ctx context.Context, roomID uuid.UUID, msg *types.ChatMessage) {
	if n == nil || n.emit == nil || msg == nil {
		return
	}
	n.emit.Emit(ctx, realtime.Event{
		Channel: roomID.String(),
		Event:   realtime.EventMessageEdited,
		Data:    map[string]any{"message": msg},
	})
}

func (n *roomNotifier) MessageDeleted(ctx context.Context, roomID, messageID uuid.UUID) {
	if n == nil || n.emit == nil {
		return
	}
	n.emit.Emit(ctx, realtime.Event{
		Channel: roomID.String(),
		Event:   realtime.EventMessageDeleted,
		Data:    map[string]any{"message_id": messageID},
	})
}

func (n *roomNotifier) RoomRenamed(ctx context.Context, room *types.ChatRoom) {
	if n == nil || n.emit == nil || room == nil {
		return
	}
	n.emit.Emit(ctx, realtime.Event{
		Channel: room.ID.String(),
		Event:   realtime.EventRoomRenamed,
		Data:    map[string]any{"room": room},
	})
}
