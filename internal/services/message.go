package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursetrade/coursetrade-backend/internal/data/repos"
	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/ctxutil"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// MessageView is a message enriched with its author's display name.
type MessageView struct {
	*types.ChatMessage
	AuthorName string `json:"author_name"`
}

type MessageService interface {
	// History returns the latest messages of a room in ascending seq order,
	// soft-deleted messages excluded. beforeSeq pages further back.
	History(dbc dbctx.Context, roomID uuid.UUID, limit int, beforeSeq *int64) ([]*MessageView, error)
	// Edit replaces the content of the caller's own message. Deleted
	// messages cannot be edited.
	Edit(dbc dbctx.Context, messageID uuid.UUID, content string) (*types.ChatMessage, error)
	// Delete soft-deletes the caller's own message. Deleting an already
	// deleted message is a no-op.
	Delete(dbc dbctx.Context, messageID uuid.UUID) error
}

type messageService struct {
	db       *gorm.DB
	log      *logger.Logger
	members  repos.ChatRoomMemberRepo
	messages repos.ChatMessageRepo
	users    repos.UserRepo
	notify   RoomNotifier
}

func NewMessageService(
	db *gorm.DB,
	baseLog *logger.Logger,
	memberRepo repos.ChatRoomMemberRepo,
	messageRepo repos.ChatMessageRepo,
	userRepo repos.UserRepo,
	notify RoomNotifier,
) MessageService {
	return &messageService{
		db:       db,
		log:      baseLog.With("service", "MessageService"),
		members:  memberRepo,
		messages: messageRepo,
		users:    userRepo,
		notify:   notify,
	}
}

func (s *messageService) History(dbc dbctx.Context, roomID uuid.UUID, limit int, beforeSeq *int64) ([]*MessageView, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	ok, err := s.members.IsMember(dbc, roomID, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, ErrNotMember
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	msgs, err := s.messages.ListByRoom(dbc, roomID, limit, beforeSeq)
	if err != nil {
		return nil, err
	}
	names, err := s.displayNames(dbc, authorIDs(msgs))
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	out := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, &MessageView{ChatMessage: m, AuthorName: names[m.AuthorID]})
	}
	return out, nil
}

func authorIDs(msgs []*types.ChatMessage) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(msgs))
	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.AuthorID]; ok {
			continue
		}
		seen[m.AuthorID] = struct{}{}
		ids = append(ids, m.AuthorID)
	}
	return ids
}

func (s *messageService) displayNames(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	users, err := s.users.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}

func (s *messageService) Edit(dbc dbctx.Context, messageID uuid.UUID, content string) (*types.ChatMessage, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content required", ErrInvalidInput)
	}
	msg, err := s.messages.GetByID(dbc, messageID)
	if err != nil {
		return nil, fmt.Errorf("lookup message: %w", err)
	}
	if msg == nil || msg.IsDeleted {
		return nil, ErrMessageNotFound
	}
	if msg.AuthorID != rd.UserID {
		return nil, ErrForbidden
	}
	updated, err := s.messages.Edit(dbc, messageID, content)
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	if updated == nil {
		// Deleted between the read and the update.
		return nil, ErrMessageNotFound
	}
	if s.notify != nil {
		s.notify.MessageEdited(dbc.Ctx, updated.RoomID, updated)
	}
	return updated, nil
}

func (s *messageService) Delete(dbc dbctx.Context, messageID uuid.UUID) error {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return ErrNotAuthenticated
	}
	msg, err := s.messages.GetByID(dbc, messageID)
	if err != nil {
		return fmt.Errorf("lookup message: %w", err)
	}
	if msg == nil || msg.IsDeleted {
		return ErrMessageNotFound
	}
	if msg.AuthorID != rd.UserID {
		return ErrForbidden
	}
	deleted, err := s.messages.SoftDelete(dbc, messageID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if deleted == nil {
		// Deleted between the read and the update.
		return ErrMessageNotFound
	}
	if s.notify != nil {
		s.notify.MessageDeleted(dbc.Ctx, deleted.RoomID, deleted.ID)
	}
	return nil
}
