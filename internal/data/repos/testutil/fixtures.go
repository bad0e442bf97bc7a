package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		Password:    "pw",
		DisplayName: "A",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:       uuid.New(),
		Title:    title,
		Metadata: datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedCourseCreator(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID, userID uuid.UUID) *types.CourseCreator {
	tb.Helper()
	cc := &types.CourseCreator{
		ID:       uuid.New(),
		CourseID: courseID,
		UserID:   userID,
	}
	if err := tx.WithContext(ctx).Create(cc).Error; err != nil {
		tb.Fatalf("seed course creator: %v", err)
	}
	return cc
}

func SeedRoom(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID, initiatorID uuid.UUID) *types.ChatRoom {
	tb.Helper()
	r := &types.ChatRoom{
		ID:          uuid.New(),
		CourseID:    courseID,
		InitiatorID: initiatorID,
		DisplayName: "room",
		Metadata:    datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed room: %v", err)
	}
	return r
}

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, roomID, userID uuid.UUID) *types.ChatRoomMember {
	tb.Helper()
	m := &types.ChatRoomMember{
		ID:     uuid.New(),
		RoomID: roomID,
		UserID: userID,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}
