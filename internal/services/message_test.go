package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/ctxutil"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

type fakeMemberRepo struct {
	members map[string]*types.ChatRoomMember
}

func (f *fakeMemberRepo) key(roomID, userID uuid.UUID) string {
	return roomID.String() + "/" + userID.String()
}

func (f *fakeMemberRepo) Add(dbc dbctx.Context, roomID, userID uuid.UUID) (*types.ChatRoomMember, error) {
	if f.members == nil {
		f.members = make(map[string]*types.ChatRoomMember)
	}
	if f.members[f.key(roomID, userID)] != nil {
		return nil, nil
	}
	m := &types.ChatRoomMember{ID: uuid.New(), RoomID: roomID, UserID: userID}
	f.members[f.key(roomID, userID)] = m
	return m, nil
}

func (f *fakeMemberRepo) Remove(dbc dbctx.Context, roomID, userID uuid.UUID) (*types.ChatRoomMember, error) {
	m := f.members[f.key(roomID, userID)]
	if m == nil {
		return nil, nil
	}
	delete(f.members, f.key(roomID, userID))
	return m, nil
}

func (f *fakeMemberRepo) IsMember(dbc dbctx.Context, roomID, userID uuid.UUID) (bool, error) {
	return f.members[f.key(roomID, userID)] != nil, nil
}

func (f *fakeMemberRepo) ListByRoom(dbc dbctx.Context, roomID uuid.UUID) ([]*types.ChatRoomMember, error) {
	var out []*types.ChatRoomMember
	for _, m := range f.members {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	byID map[uuid.UUID]*types.User
}

func (f *fakeUserRepo) put(u *types.User) {
	if f.byID == nil {
		f.byID = make(map[uuid.UUID]*types.User)
	}
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) Create(dbc dbctx.Context, rows []*types.User) ([]*types.User, error) {
	for _, u := range rows {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		f.put(u)
	}
	return rows, nil
}

func (f *fakeUserRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	u, err := f.GetByEmail(dbc, email)
	return u != nil, err
}

type fakeMessageRepo struct {
	byID map[uuid.UUID]*types.ChatMessage
}

func (f *fakeMessageRepo) put(msg *types.ChatMessage) {
	if f.byID == nil {
		f.byID = make(map[uuid.UUID]*types.ChatMessage)
	}
	f.byID[msg.ID] = msg
}

func (f *fakeMessageRepo) Append(dbc dbctx.Context, roomID, authorID uuid.UUID, content string) (*types.ChatMessage, error) {
	msg := &types.ChatMessage{ID: uuid.New(), RoomID: roomID, AuthorID: authorID, Content: content}
	f.put(msg)
	return msg, nil
}

func (f *fakeMessageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error) {
	msg, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (f *fakeMessageRepo) Edit(dbc dbctx.Context, id uuid.UUID, content string) (*types.ChatMessage, error) {
	msg, ok := f.byID[id]
	if !ok || msg.IsDeleted {
		return nil, nil
	}
	now := time.Now().UTC()
	msg.Content = content
	msg.EditedAt = &now
	cp := *msg
	return &cp, nil
}

func (f *fakeMessageRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error) {
	msg, ok := f.byID[id]
	if !ok || msg.IsDeleted {
		return nil, nil
	}
	msg.IsDeleted = true
	cp := *msg
	return &cp, nil
}

func (f *fakeMessageRepo) ListByRoom(dbc dbctx.Context, roomID uuid.UUID, limit int, beforeSeq *int64) ([]*types.ChatMessage, error) {
	var out []*types.ChatMessage
	for _, m := range f.byID {
		if m.RoomID == roomID && !m.IsDeleted {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	msg, ok := f.byID[id]
	return ok && !msg.IsDeleted, nil
}

type recordingNotifier struct {
	edited  int
	deleted int
	renamed int
}

func (n *recordingNotifier) MessageEdited(ctx context.Context, roomID uuid.UUID, msg *types.ChatMessage) {
	n.edited++
}
func (n *recordingNotifier) MessageDeleted(ctx context.Context, roomID, messageID uuid.UUID) {
	n.deleted++
}
func (n *recordingNotifier) RoomRenamed(ctx context.Context, room *types.ChatRoom) { n.renamed++ }

func svcLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func authedCtx(userID uuid.UUID) dbctx.Context {
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID})
	return dbctx.Context{Ctx: ctx}
}

func TestHistoryRequiresMembership(t *testing.T) {
	members := &fakeMemberRepo{}
	messages := &fakeMessageRepo{}
	svc := NewMessageService(nil, svcLogger(t), members, messages, &fakeUserRepo{}, nil)

	roomID := uuid.New()
	outsider := uuid.New()

	_, err := svc.History(authedCtx(outsider), roomID, 50, nil)
	if !errors.Is(err, ErrNotMember) {
		t.Fatalf("History: expected ErrNotMember, got %v", err)
	}

	member := uuid.New()
	if _, err := members.Add(dbctx.Context{}, roomID, member); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.History(authedCtx(member), roomID, 50, nil); err != nil {
		t.Fatalf("History (member): %v", err)
	}
}

func TestHistoryCarriesAuthorNames(t *testing.T) {
	members := &fakeMemberRepo{}
	messages := &fakeMessageRepo{}
	users := &fakeUserRepo{}
	svc := NewMessageService(nil, svcLogger(t), members, messages, users, nil)

	roomID := uuid.New()
	author := &types.User{ID: uuid.New(), DisplayName: "Ada"}
	users.put(author)
	if _, err := members.Add(dbctx.Context{}, roomID, author.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := messages.Append(dbctx.Context{}, roomID, author.ID, "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	out, err := svc.History(authedCtx(author.ID), roomID, 50, nil)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("History: expected 1 message, got %d", len(out))
	}
	if out[0].AuthorName != "Ada" {
		t.Fatalf("History: expected author name Ada, got %q", out[0].AuthorName)
	}
}

func TestEditOnlyByAuthorAndNotAfterDelete(t *testing.T) {
	members := &fakeMemberRepo{}
	messages := &fakeMessageRepo{}
	notify := &recordingNotifier{}
	svc := NewMessageService(nil, svcLogger(t), members, messages, &fakeUserRepo{}, notify)

	author := uuid.New()
	roomID := uuid.New()
	msg, _ := messages.Append(dbctx.Context{}, roomID, author, "original")

	if _, err := svc.Edit(authedCtx(uuid.New()), msg.ID, "hijacked"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Edit (other user): expected ErrForbidden, got %v", err)
	}

	edited, err := svc.Edit(authedCtx(author), msg.ID, "revised")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Content != "revised" || edited.EditedAt == nil {
		t.Fatalf("Edit: unexpected result: %+v", edited)
	}
	if notify.edited != 1 {
		t.Fatalf("Edit: expected 1 notification, got %d", notify.edited)
	}

	if err := svc.Delete(authedCtx(author), msg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if notify.deleted != 1 {
		t.Fatalf("Delete: expected 1 notification, got %d", notify.deleted)
	}

	if _, err := svc.Edit(authedCtx(author), msg.ID, "too late"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("Edit (deleted): expected ErrMessageNotFound, got %v", err)
	}

	// A deleted message is absent: deleting it again reports not-found and
	// must not notify a second time.
	if err := svc.Delete(authedCtx(author), msg.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("Delete (again): expected ErrMessageNotFound, got %v", err)
	}
	if notify.deleted != 1 {
		t.Fatalf("Delete (again): expected no extra notification, got %d", notify.deleted)
	}
}

func TestDeleteOnlyByAuthor(t *testing.T) {
	members := &fakeMemberRepo{}
	messages := &fakeMessageRepo{}
	svc := NewMessageService(nil, svcLogger(t), members, messages, &fakeUserRepo{}, nil)

	author := uuid.New()
	msg, _ := messages.Append(dbctx.Context{}, uuid.New(), author, "mine")

	if err := svc.Delete(authedCtx(uuid.New()), msg.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete (other user): expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(authedCtx(author), uuid.New()); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("Delete (missing): expected ErrMessageNotFound, got %v", err)
	}
}
