package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

// ChatRoomMemberRepo is the membership store. Add is idempotent from the
// caller's point of view: a duplicate (room_id, user_id) insert is reported
// as (nil, nil), never as an error, because "already a member" is a routine
// outcome.
type ChatRoomMemberRepo interface {
	Add(dbc dbctx.Context, roomID, userID uuid.UUID) (*types.ChatRoomMember, error)
	Remove(dbc dbctx.Context, roomID, userID uuid.UUID) (*types.ChatRoomMember, error)
	IsMember(dbc dbctx.Context, roomID, userID uuid.UUID) (bool, error)
	ListByRoom(dbc dbctx.Context, roomID uuid.UUID) ([]*types.ChatRoomMember, error)
}

type chatRoomMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRoomMemberRepo(db *gorm.DB, log *logger.Logger) ChatRoomMemberRepo {
	return &chatRoomMemberRepo{db: db, log: log.With("repo", "ChatRoomMemberRepo")}
}

func (r *chatRoomMemberRepo) Add(dbc dbctx.Context, roomID, userID uuid.UUID) (*types.ChatRoomMember, error) {
	if roomID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing room_id or user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}

	// Query-then-insert alone races under concurrent joins; the unique
	// (room_id, user_id) index is the real guard. A duplicate-key failure
	// from the insert is folded into the "already a member" outcome.
	existing, err := r.getByRoomUser(dbc, txx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	row := &types.ChatRoomMember{
		ID:       uuid.New(),
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	if err := txx.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *chatRoomMemberRepo) Remove(dbc dbctx.Context, roomID, userID uuid.UUID) (*types.ChatRoomMember, error) {
	if roomID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing room_id or user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	existing, err := r.getByRoomUser(dbc, txx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	res := txx.WithContext(dbc.Ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&types.ChatRoomMember{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return existing, nil
}

func (r *chatRoomMemberRepo) IsMember(dbc dbctx.Context, roomID, userID uuid.UUID) (bool, error) {
	if roomID == uuid.Nil || userID == uuid.Nil {
		return false, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var count int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *chatRoomMemberRepo) ListByRoom(dbc dbctx.Context, roomID uuid.UUID) ([]*types.ChatRoomMember, error) {
	if roomID == uuid.Nil {
		return nil, fmt.Errorf("missing room_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ChatRoomMember
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ChatRoomMember{}).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatRoomMemberRepo) getByRoomUser(dbc dbctx.Context, txx *gorm.DB, roomID, userID uuid.UUID) (*types.ChatRoomMember, error) {
	var out types.ChatRoomMember
	err := txx.WithContext(dbc.Ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
