package learning

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

// CourseRepo is the collaborator lookup the discussion core consumes: room
// creation asks it for the course and the creators to auto-add as members.
type CourseRepo interface {
	Create(dbc dbctx.Context, rows []*types.Course) ([]*types.Course, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error)
	AddCreator(dbc dbctx.Context, courseID, userID uuid.UUID) (*types.CourseCreator, error)
	CreatorIDs(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, log *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: log.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, rows []*types.Course) ([]*types.Course, error) {
	if len(rows) == 0 {
		return []*types.Course{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Course, error) {
	if len(ids) == 0 {
		return []*types.Course{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Course
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Course{}).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) AddCreator(dbc dbctx.Context, courseID, userID uuid.UUID) (*types.CourseCreator, error) {
	if courseID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing course_id or user_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	row := &types.CourseCreator{
		ID:       uuid.New(),
		CourseID: courseID,
		UserID:   userID,
	}
	if err := txx.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *courseRepo) CreatorIDs(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("missing course_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []uuid.UUID
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.CourseCreator{}).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
