package chat

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoomMember records that a user belongs to a room. Membership controls
// authorization for every read and send; the unique (room_id, user_id) index
// is what makes concurrent joins collapse to a single row.
type ChatRoomMember struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_chat_room_member_room_user,unique,priority:1" json:"room_id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_chat_room_member_room_user,unique,priority:2" json:"user_id"`

	JoinedAt time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
}

func (ChatRoomMember) TableName() string { return "chat_room_member" }
