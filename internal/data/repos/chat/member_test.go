package chat

import (
	"context"
	"testing"

	"github.com/coursetrade/coursetrade-backend/internal/data/repos/testutil"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
)

func TestChatRoomMemberRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewChatRoomMemberRepo(db, testutil.Logger(t))
	initiator := testutil.SeedUser(t, ctx, tx, "member-initiator@example.com")
	other := testutil.SeedUser(t, ctx, tx, "member-other@example.com")
	course := testutil.SeedCourse(t, ctx, tx, "Membership 101")
	room := testutil.SeedRoom(t, ctx, tx, course.ID, initiator.ID)

	added, err := repo.Add(dbc, room.ID, other.ID)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added == nil || added.UserID != other.ID {
		t.Fatalf("Add: unexpected result: %+v", added)
	}

	// Adding the same pair again is absent, not an error.
	again, err := repo.Add(dbc, room.ID, other.ID)
	if err != nil {
		t.Fatalf("Add (duplicate): %v", err)
	}
	if again != nil {
		t.Fatalf("Add (duplicate): expected nil, got %+v", again)
	}

	ok, err := repo.IsMember(dbc, room.ID, other.ID)
	if err != nil {
		t.Fatalf("IsMember: %v", err)
	}
	if !ok {
		t.Fatalf("IsMember: expected true")
	}

	ok, err = repo.IsMember(dbc, room.ID, initiator.ID)
	if err != nil {
		t.Fatalf("IsMember (non-member): %v", err)
	}
	if ok {
		t.Fatalf("IsMember (non-member): expected false")
	}

	members, err := repo.ListByRoom(dbc, room.ID)
	if err != nil {
		t.Fatalf("ListByRoom: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("ListByRoom: expected 1 member, got %d", len(members))
	}

	removed, err := repo.Remove(dbc, room.ID, other.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed == nil || removed.UserID != other.ID {
		t.Fatalf("Remove: unexpected result: %+v", removed)
	}

	// Removing a non-member is absent, not an error.
	removed, err = repo.Remove(dbc, room.ID, other.ID)
	if err != nil {
		t.Fatalf("Remove (absent): %v", err)
	}
	if removed != nil {
		t.Fatalf("Remove (absent): expected nil, got %+v", removed)
	}

	ok, err = repo.IsMember(dbc, room.ID, other.ID)
	if err != nil {
		t.Fatalf("IsMember after remove: %v", err)
	}
	if ok {
		t.Fatalf("IsMember after remove: expected false")
	}
}
