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

// ChatMessageRepo is the durable message log. Edit and SoftDelete return
// (nil, nil) when the message is missing or already deleted; soft-deleted
// rows never leave the store but are excluded from every read path.
type ChatMessageRepo interface {
	Append(dbc dbctx.Context, roomID, authorID uuid.UUID, content string) (*types.ChatMessage, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error)
	Edit(dbc dbctx.Context, id uuid.UUID, content string) (*types.ChatMessage, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error)
	ListByRoom(dbc dbctx.Context, roomID uuid.UUID, limit int, beforeSeq *int64) ([]*types.ChatMessage, error)
	Exists(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: log.With("repo", "ChatMessageRepo")}
}

// Append assigns the message's seq from the room's next_seq under a row lock,
// so two appends landing in the same instant still get a stable total order.
func (r *chatMessageRepo) Append(dbc dbctx.Context, roomID, authorID uuid.UUID, content string) (*types.ChatMessage, error) {
	if roomID == uuid.Nil || authorID == uuid.Nil {
		return nil, fmt.Errorf("missing room_id or author_id")
	}

	msg := &types.ChatMessage{
		ID:        uuid.New(),
		RoomID:    roomID,
		AuthorID:  authorID,
		Content:   content,
		IsDeleted: false,
		CreatedAt: time.Now().UTC(),
	}

	appendTx := func(tx *gorm.DB) error {
		var room types.ChatRoom
		q := tx.WithContext(dbc.Ctx).Where("id = ?", roomID)
		// SQLite has a single writer; FOR UPDATE only exists on Postgres.
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Take(&room).Error; err != nil {
			return err
		}
		msg.Seq = room.NextSeq + 1
		if err := tx.WithContext(dbc.Ctx).
			Model(&types.ChatRoom{}).
			Where("id = ?", roomID).
			Update("next_seq", msg.Seq).Error; err != nil {
			return err
		}
		return tx.WithContext(dbc.Ctx).Create(msg).Error
	}

	var err error
	if dbc.Tx != nil {
		err = appendTx(dbc.Tx)
	} else {
		err = r.db.Transaction(appendTx)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *chatMessageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out types.ChatMessage
	err := txx.WithContext(dbc.Ctx).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatMessageRepo) Edit(dbc dbctx.Context, id uuid.UUID, content string) (*types.ChatMessage, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	now := time.Now().UTC()
	// The is_deleted guard in the WHERE clause makes "edit after delete"
	// a zero-row update, not a race-prone read-check-write.
	res := txx.WithContext(dbc.Ctx).
		Model(&types.ChatMessage{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(dbc, id)
}

func (r *chatMessageRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.ChatMessage{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return nil, res.Error
	}
	// Deleting twice yields absent the second time.
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(dbc, id)
}

func (r *chatMessageRepo) ListByRoom(dbc dbctx.Context, roomID uuid.UUID, limit int, beforeSeq *int64) ([]*types.ChatMessage, error) {
	if roomID == uuid.Nil {
		return nil, fmt.Errorf("missing room_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).
		Model(&types.ChatMessage{}).
		Where("room_id = ? AND is_deleted = ?", roomID, false)
	if beforeSeq != nil {
		q = q.Where("seq < ?", *beforeSeq)
	}
	var out []*types.ChatMessage
	if err := q.Order("seq DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	// Normalize to ASC for display.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *chatMessageRepo) Exists(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var count int64
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.ChatMessage{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
