package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
)

// svcDB backs service methods that open their own transaction; the fakes
// ignore the handle, so an empty in-memory store is enough.
func svcDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return gdb
}

type fakeRoomRepo struct {
	byID map[uuid.UUID]*types.ChatRoom
}

func (f *fakeRoomRepo) put(room *types.ChatRoom) {
	if f.byID == nil {
		f.byID = make(map[uuid.UUID]*types.ChatRoom)
	}
	f.byID[room.ID] = room
}

func (f *fakeRoomRepo) Create(dbc dbctx.Context, room *types.ChatRoom) (*types.ChatRoom, error) {
	f.put(room)
	return room, nil
}

func (f *fakeRoomRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ChatRoom, error) {
	var out []*types.ChatRoom
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) FindByCourseInitiator(dbc dbctx.Context, courseID, initiatorID uuid.UUID) (*types.ChatRoom, error) {
	for _, r := range f.byID {
		if r.CourseID == courseID && r.InitiatorID == initiatorID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRoomRepo) ListByMember(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ChatRoom, error) {
	return nil, nil
}

func (f *fakeRoomRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatRoom, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (f *fakeRoomRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r, ok := f.byID[id]
	if !ok {
		return nil
	}
	if name, ok := updates["display_name"].(string); ok {
		r.DisplayName = name
	}
	return nil
}

type fakeCourseRepo struct {
	byID     map[uuid.UUID]*types.Course
	creators map[uuid.UUID][]uuid.UUID
}

func (f *fakeCourseRepo) put(course *types.Course) {
	if f.byID == nil {
		f.byID = make(map[uuid.UUID]*types.Course)
	}
	f.byID[course.ID] = course
}

func (f *fakeCourseRepo) Create(dbc dbctx.Context, rows []*types.Course) ([]*types.Course, error) {
	for _, c := range rows {
		f.put(c)
	}
	return rows, nil
}

func (f *fakeCourseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error) {
	var out []*types.Course
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) AddCreator(dbc dbctx.Context, courseID, userID uuid.UUID) (*types.CourseCreator, error) {
	if f.creators == nil {
		f.creators = make(map[uuid.UUID][]uuid.UUID)
	}
	f.creators[courseID] = append(f.creators[courseID], userID)
	return &types.CourseCreator{CourseID: courseID, UserID: userID}, nil
}

func (f *fakeCourseRepo) CreatorIDs(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	return f.creators[courseID], nil
}

func TestJoinRestrictedToCourseParticipants(t *testing.T) {
	rooms := &fakeRoomRepo{}
	members := &fakeMemberRepo{}
	courses := &fakeCourseRepo{}
	svc := NewRoomService(nil, svcLogger(t), rooms, members, courses, &fakeUserRepo{}, nil)

	initiator := uuid.New()
	creator := uuid.New()
	course := &types.Course{ID: uuid.New(), Title: "Go Basics"}
	courses.put(course)
	courses.creators = map[uuid.UUID][]uuid.UUID{course.ID: {creator}}

	room := &types.ChatRoom{ID: uuid.New(), CourseID: course.ID, InitiatorID: initiator}
	rooms.put(room)

	if _, err := svc.Join(authedCtx(uuid.New()), room.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Join (outsider): expected ErrForbidden, got %v", err)
	}

	member, err := svc.Join(authedCtx(creator), room.ID)
	if err != nil {
		t.Fatalf("Join (creator): %v", err)
	}
	if member == nil || member.UserID != creator {
		t.Fatalf("Join (creator): unexpected result: %+v", member)
	}

	// Re-joining is idempotent: absent membership, no error.
	member, err = svc.Join(authedCtx(creator), room.ID)
	if err != nil {
		t.Fatalf("Join (again): %v", err)
	}
	if member != nil {
		t.Fatalf("Join (again): expected nil, got %+v", member)
	}

	if _, err := svc.Join(authedCtx(creator), uuid.New()); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Join (missing room): expected ErrRoomNotFound, got %v", err)
	}
}

func TestMembersVisibleToMembersWithNames(t *testing.T) {
	rooms := &fakeRoomRepo{}
	members := &fakeMemberRepo{}
	users := &fakeUserRepo{}
	svc := NewRoomService(nil, svcLogger(t), rooms, members, &fakeCourseRepo{}, users, nil)

	roomID := uuid.New()
	alice := &types.User{ID: uuid.New(), DisplayName: "Alice"}
	bob := &types.User{ID: uuid.New(), DisplayName: "Bob"}
	users.put(alice)
	users.put(bob)
	for _, u := range []*types.User{alice, bob} {
		if _, err := members.Add(dbctx.Context{}, roomID, u.ID); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	if _, err := svc.Members(authedCtx(uuid.New()), roomID); !errors.Is(err, ErrNotMember) {
		t.Fatalf("Members (outsider): expected ErrNotMember, got %v", err)
	}

	out, err := svc.Members(authedCtx(alice.ID), roomID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Members: expected 2, got %d", len(out))
	}
	names := map[uuid.UUID]string{}
	for _, m := range out {
		names[m.UserID] = m.DisplayName
	}
	if names[alice.ID] != "Alice" || names[bob.ID] != "Bob" {
		t.Fatalf("Members: unexpected names: %v", names)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	rooms := &fakeRoomRepo{}
	members := &fakeMemberRepo{}
	svc := NewRoomService(nil, svcLogger(t), rooms, members, &fakeCourseRepo{}, &fakeUserRepo{}, nil)

	roomID := uuid.New()
	userID := uuid.New()
	if _, err := members.Add(dbctx.Context{}, roomID, userID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := svc.Leave(authedCtx(userID), roomID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := svc.Leave(authedCtx(userID), roomID); err != nil {
		t.Fatalf("Leave (again): %v", err)
	}
}

func TestRenameInitiatorOnly(t *testing.T) {
	rooms := &fakeRoomRepo{}
	notify := &recordingNotifier{}
	svc := NewRoomService(svcDB(t), svcLogger(t), rooms, &fakeMemberRepo{}, &fakeCourseRepo{}, &fakeUserRepo{}, notify)

	initiator := uuid.New()
	room := &types.ChatRoom{ID: uuid.New(), CourseID: uuid.New(), InitiatorID: initiator, DisplayName: "old"}
	rooms.put(room)

	if _, err := svc.Rename(authedCtx(uuid.New()), room.ID, "hijack"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Rename (other user): expected ErrForbidden, got %v", err)
	}

	renamed, err := svc.Rename(authedCtx(initiator), room.ID, "new name")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.DisplayName != "new name" {
		t.Fatalf("Rename: unexpected result: %+v", renamed)
	}
	if notify.renamed != 1 {
		t.Fatalf("Rename: expected 1 notification, got %d", notify.renamed)
	}

	if _, err := svc.Rename(authedCtx(initiator), room.ID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Rename (blank): expected ErrInvalidInput, got %v", err)
	}

	if _, err := svc.Rename(authedCtx(initiator), uuid.New(), "ghost"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Rename (missing room): expected ErrRoomNotFound, got %v", err)
	}
}
