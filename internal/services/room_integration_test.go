package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/coursetrade/coursetrade-backend/internal/data/repos"
	"github.com/coursetrade/coursetrade-backend/internal/data/repos/testutil"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/ctxutil"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
)

// Runs against TEST_POSTGRES_DSN; the service is handed the test transaction
// as its database so everything rolls back on cleanup.
func TestCreateRoomSeedsMembershipAndConflicts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	log := testutil.Logger(t)

	roomRepo := repos.NewChatRoomRepo(tx, log)
	memberRepo := repos.NewChatRoomMemberRepo(tx, log)
	courseRepo := repos.NewCourseRepo(tx, log)
	userRepo := repos.NewUserRepo(tx, log)
	svc := NewRoomService(tx, log, roomRepo, memberRepo, courseRepo, userRepo, nil)

	initiator := testutil.SeedUser(t, ctx, tx, "create-initiator@example.com")
	creator := testutil.SeedUser(t, ctx, tx, "create-creator@example.com")
	course := testutil.SeedCourse(t, ctx, tx, "Deep Dive")
	testutil.SeedCourseCreator(t, ctx, tx, course.ID, creator.ID)

	callerCtx := dbctx.Context{Ctx: ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: initiator.ID})}

	room, err := svc.CreateRoom(callerCtx, course.ID, "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.DisplayName != "Deep Dive" {
		t.Fatalf("CreateRoom: expected course title as default name, got %q", room.DisplayName)
	}

	// Initiator and course creator are both seeded as members.
	for _, userID := range []uuid.UUID{initiator.ID, creator.ID} {
		ok, err := memberRepo.IsMember(dbctx.Context{Ctx: ctx, Tx: tx}, room.ID, userID)
		if err != nil {
			t.Fatalf("IsMember: %v", err)
		}
		if !ok {
			t.Fatalf("CreateRoom: expected %s to be a member", userID)
		}
	}

	// Same (course, initiator) pair again is a conflict.
	if _, err := svc.CreateRoom(callerCtx, course.ID, "second"); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("CreateRoom (duplicate): expected ErrRoomExists, got %v", err)
	}

	// A different initiator on the same course gets their own room.
	otherCtx := dbctx.Context{Ctx: ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: creator.ID})}
	other, err := svc.CreateRoom(otherCtx, course.ID, "creator's room")
	if err != nil {
		t.Fatalf("CreateRoom (other initiator): %v", err)
	}
	if other.ID == room.ID {
		t.Fatalf("CreateRoom (other initiator): expected a distinct room")
	}

	// A missing course is rejected up front.
	if _, err := svc.CreateRoom(callerCtx, uuid.New(), ""); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("CreateRoom (missing course): expected ErrCourseNotFound, got %v", err)
	}
}
