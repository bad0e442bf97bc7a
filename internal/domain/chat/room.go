package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatRoom is a per-course discussion thread. A given user opens at most one
// room per course, enforced by the unique (course_id, initiator_id) index.
type ChatRoom struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;index;index:idx_chat_room_course_initiator,unique,priority:1" json:"course_id"`
	InitiatorID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_chat_room_course_initiator,unique,priority:2" json:"initiator_id"`

	DisplayName string         `gorm:"column:display_name;not null;default:''" json:"display_name"`
	Metadata    datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	// Concurrency-safe per-room message sequencing:
	NextSeq int64 `gorm:"column:next_seq;not null;default:0" json:"next_seq"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (ChatRoom) TableName() string { return "chat_room" }
