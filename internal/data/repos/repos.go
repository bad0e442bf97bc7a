package repos

import (
	"gorm.io/gorm"

	"github.com/coursetrade/coursetrade-backend/internal/data/repos/chat"
	"github.com/coursetrade/coursetrade-backend/internal/data/repos/learning"
	"github.com/coursetrade/coursetrade-backend/internal/data/repos/user"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = user.UserTokenRepo

type CourseRepo = learning.CourseRepo

type ChatRoomRepo = chat.ChatRoomRepo
type ChatRoomMemberRepo = chat.ChatRoomMemberRepo
type ChatMessageRepo = chat.ChatMessageRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return user.NewUserTokenRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}

func NewChatRoomRepo(db *gorm.DB, baseLog *logger.Logger) ChatRoomRepo {
	return chat.NewChatRoomRepo(db, baseLog)
}
func NewChatRoomMemberRepo(db *gorm.DB, baseLog *logger.Logger) ChatRoomMemberRepo {
	return chat.NewChatRoomMemberRepo(db, baseLog)
}
func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, baseLog)
}
