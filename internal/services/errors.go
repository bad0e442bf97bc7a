package services

import "errors"

// Sentinel errors the HTTP layer maps onto status codes. Everything else
// surfaces as a 500.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidLogin     = errors.New("invalid email or password")
	ErrRoomExists       = errors.New("room already exists for this course and initiator")
	ErrRoomNotFound     = errors.New("room not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrNotMember        = errors.New("not a member of this room")
	ErrMessageNotFound  = errors.New("message not found")
	ErrForbidden        = errors.New("forbidden")
)
