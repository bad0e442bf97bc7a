package domain

import (
	"github.com/coursetrade/coursetrade-backend/internal/domain/chat"
	"github.com/coursetrade/coursetrade-backend/internal/domain/learning"
	"github.com/coursetrade/coursetrade-backend/internal/domain/user"
)

// Root aliases so callers can import one package as `types`.

type User = user.User
type UserToken = user.UserToken

type Course = learning.Course
type CourseCreator = learning.CourseCreator

type ChatRoom = chat.ChatRoom
type ChatRoomMember = chat.ChatRoomMember
type ChatMessage = chat.ChatMessage
