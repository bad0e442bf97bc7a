package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursetrade/coursetrade-backend/internal/data/repos"
	types "github.com/coursetrade/coursetrade-backend/internal/domain"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/ctxutil"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
)

// CourseService is the thin directory the discussion rooms hang off of. A
// fuller catalog (pricing, content, search) lives elsewhere; rooms only need
// courses to exist and to know who created them.
type CourseService interface {
	CreateCourse(dbc dbctx.Context, title string) (*types.Course, error)
	GetCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
}

type courseService struct {
	db      *gorm.DB
	log     *logger.Logger
	courses repos.CourseRepo
}

func NewCourseService(db *gorm.DB, baseLog *logger.Logger, courseRepo repos.CourseRepo) CourseService {
	return &courseService{
		db:      db,
		log:     baseLog.With("service", "CourseService"),
		courses: courseRepo,
	}
}

func (s *courseService) CreateCourse(dbc dbctx.Context, title string) (*types.Course, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidInput)
	}

	var course *types.Course
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		rows, cErr := s.courses.Create(txc, []*types.Course{{
			ID:    uuid.New(),
			Title: title,
		}})
		if cErr != nil {
			return fmt.Errorf("create course: %w", cErr)
		}
		course = rows[0]
		if _, aErr := s.courses.AddCreator(txc, course.ID, rd.UserID); aErr != nil {
			return fmt.Errorf("add course creator: %w", aErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

func (s *courseService) GetCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	rows, err := s.courses.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("lookup course: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrCourseNotFound
	}
	return rows[0], nil
}
