package chat

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are append-mostly. Edits replace content and set edited_at;
// deletes only flip is_deleted so the row survives for audit. Seq is assigned
// from the room's next_seq under a row lock, so (room_id, seq) is a stable
// total order even when created_at collides.
type ChatMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID   uuid.UUID `gorm:"type:uuid;not null;index;index:idx_chat_message_room_seq,unique,priority:1" json:"room_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`

	Seq int64 `gorm:"column:seq;not null;index:idx_chat_message_room_seq,unique,priority:2" json:"seq"`

	Content   string     `gorm:"column:content;type:text;not null;default:''" json:"content"`
	EditedAt  *time.Time `gorm:"column:edited_at" json:"edited_at,omitempty"`
	IsDeleted bool       `gorm:"column:is_deleted;not null;default:false;index" json:"is_deleted"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }
