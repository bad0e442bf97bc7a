package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

// ChatRoomRepo is the room directory. "No room yet" is the common steady
// state for most (course, user) pairs, so lookups return (nil, nil) rather
// than an error when nothing exists.
type ChatRoomRepo interface {
	Create(dbc dbctx.Context, room *types.ChatRoom) (*types.ChatRoom, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ChatRoom, error)
	FindByCourseInitiator(dbc dbctx.Context, courseID, initiatorID uuid.UUID) (*types.ChatRoom, error)
	ListByMember(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ChatRoom, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatRoom, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type chatRoomRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRoomRepo(db *gorm.DB, log *logger.Logger) ChatRoomRepo {
	return &chatRoomRepo{db: db, log: log.With("repo", "ChatRoomRepo")}
}

func (r *chatRoomRepo) Create(dbc dbctx.Context, room *types.ChatRoom) (*types.ChatRoom, error) {
	if room == nil {
		return nil, fmt.Errorf("missing room")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	// A racing create for the same (course_id, initiator_id) surfaces as
	// gorm.ErrDuplicatedKey via the unique index; the service maps it to
	// its conflict error.
	if err := txx.WithContext(dbc.Ctx).Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

func (r *chatRoomRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ChatRoom, error) {
	if len(ids) == 0 {
		return []*types.ChatRoom{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ChatRoom
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ChatRoom{}).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatRoomRepo) FindByCourseInitiator(dbc dbctx.Context, courseID, initiatorID uuid.UUID) (*types.ChatRoom, error) {
	if courseID == uuid.Nil || initiatorID == uuid.Nil {
		return nil, fmt.Errorf("missing course_id or initiator_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.ChatRoom
	err := txx.WithContext(dbc.Ctx).
		Where("course_id = ? AND initiator_id = ?", courseID, initiatorID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatRoomRepo) ListByMember(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ChatRoom, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ChatRoom
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ChatRoom{}).
		Joins("JOIN chat_room_member AS m ON m.room_id = chat_room.id").
		Where("m.user_id = ?", userID).
		Order("chat_room.updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatRoomRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatRoom, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	q := dbc.Tx.WithContext(dbc.Ctx).Where("id = ?", id)
	// SQLite has a single writer; FOR UPDATE only exists on Postgres.
	if dbc.Tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out types.ChatRoom
	err := q.Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatRoomRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ChatRoom{}).
		Where("id = ?", id).
		Updates(updates).Error
}
