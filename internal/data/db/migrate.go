package db

import (
	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Identity + auth
		&types.User{},
		&types.UserToken{},

		// Course collaborators
		&types.Course{},
		&types.CourseCreator{},

		// Discussion core
		&types.ChatRoom{},
		&types.ChatRoomMember{},
		&types.ChatMessage{},
	)
}
