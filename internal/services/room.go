package services

import (
	"errors"
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

const defaultRoomListLimit = 100

// MemberView is a membership enriched with the member's display name.
type MemberView struct {
	*types.ChatRoomMember
	DisplayName string `json:"display_name"`
}

type RoomService interface {
	// CreateRoom opens the discussion room for (courseID, caller). At most one
	// such room can exist; a second attempt returns ErrRoomExists.
	CreateRoom(dbc dbctx.Context, courseID uuid.UUID, displayName string) (*types.ChatRoom, error)
	GetRoom(dbc dbctx.Context, roomID uuid.UUID) (*types.ChatRoom, error)
	ListMyRooms(dbc dbctx.Context, limit int) ([]*types.ChatRoom, error)
	Members(dbc dbctx.Context, roomID uuid.UUID) ([]*MemberView, error)
	Join(dbc dbctx.Context, roomID uuid.UUID) (*types.ChatRoomMember, error)
	Leave(dbc dbctx.Context, roomID uuid.UUID) error
	Rename(dbc dbctx.Context, roomID uuid.UUID, displayName string) (*types.ChatRoom, error)
}

type roomService struct {
	db      *gorm.DB
	log     *logger.Logger
	rooms   repos.ChatRoomRepo
	members repos.ChatRoomMemberRepo
	courses repos.CourseRepo
	users   repos.UserRepo
	notify  RoomNotifier
}

func NewRoomService(
	db *gorm.DB,
	baseLog *logger.Logger,
	roomRepo repos.ChatRoomRepo,
	memberRepo repos.ChatRoomMemberRepo,
	courseRepo repos.CourseRepo,
	userRepo repos.UserRepo,
	notify RoomNotifier,
) RoomService {
	return &roomService{
		db:      db,
		log:     baseLog.With("service", "RoomService"),
		rooms:   roomRepo,
		members: memberRepo,
		courses: courseRepo,
		users:   userRepo,
		notify:  notify,
	}
}

func (s *roomService) CreateRoom(dbc dbctx.Context, courseID uuid.UUID, displayName string) (*types.ChatRoom, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	courseRows, err := s.courses.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("lookup course: %w", err)
	}
	if len(courseRows) == 0 {
		return nil, ErrCourseNotFound
	}
	course := courseRows[0]

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = course.Title
	}

	var room *types.ChatRoom
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		created, cErr := s.rooms.Create(txc, &types.ChatRoom{
			ID:          uuid.New(),
			CourseID:    courseID,
			InitiatorID: rd.UserID,
			DisplayName: displayName,
		})
		if cErr != nil {
			if errors.Is(cErr, gorm.ErrDuplicatedKey) {
				return ErrRoomExists
			}
			return fmt.Errorf("create room: %w", cErr)
		}
		room = created

		// The initiator must end up a member; the course creators are
		// seeded best-effort and can join later if anything here fails.
		if _, mErr := s.members.Add(txc, room.ID, rd.UserID); mErr != nil {
			return fmt.Errorf("add initiator membership: %w", mErr)
		}
		creatorIDs, crErr := s.courses.CreatorIDs(txc, courseID)
		if crErr != nil {
			s.log.Warn("failed to load course creators for room seeding", "course_id", courseID, "error", crErr)
			return nil
		}
		for _, creatorID := range creatorIDs {
			if creatorID == rd.UserID {
				continue
			}
			if _, mErr := s.members.Add(txc, room.ID, creatorID); mErr != nil {
				s.log.Warn("failed to seed course creator into room", "room_id", room.ID, "user_id", creatorID, "error", mErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *roomService) GetRoom(dbc dbctx.Context, roomID uuid.UUID) (*types.ChatRoom, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	rooms, err := s.rooms.GetByIDs(dbc, []uuid.UUID{roomID})
	if err != nil {
		return nil, fmt.Errorf("lookup room: %w", err)
	}
	if len(rooms) == 0 {
		return nil, ErrRoomNotFound
	}
	ok, err := s.members.IsMember(dbc, roomID, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return nil, ErrNotMember
	}
	return rooms[0], nil
}

func (s *roomService) ListMyRooms(dbc dbctx.Context, limit int) ([]*types.ChatRoom, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	if limit <= 0 || limit > defaultRoomListLimit {
		limit = defaultRoomListLimit
	}
	return s.rooms.ListByMember(dbc, rd.UserID, limit)
}

// Members lists the room's memberships with display names, visible to
// members only.
func (s *roomService) Members(dbc dbctx.Context, roomID uuid.UUID) ([]*MemberView, error) {
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
	rows, err := s.members.ListByRoom(dbc, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve members: %w", err)
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	out := make([]*MemberView, 0, len(rows))
	for _, m := range rows {
		out = append(out, &MemberView{ChatRoomMember: m, DisplayName: names[m.UserID]})
	}
	return out, nil
}

// Join adds the caller to the room. Only participants of the underlying
// course exchange (the initiator or a course creator) may join; re-joining
// is a no-op that returns a nil membership.
func (s *roomService) Join(dbc dbctx.Context, roomID uuid.UUID) (*types.ChatRoomMember, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	rooms, err := s.rooms.GetByIDs(dbc, []uuid.UUID{roomID})
	if err != nil {
		return nil, fmt.Errorf("lookup room: %w", err)
	}
	if len(rooms) == 0 {
		return nil, ErrRoomNotFound
	}
	room := rooms[0]

	if room.InitiatorID != rd.UserID {
		creatorIDs, crErr := s.courses.CreatorIDs(dbc, room.CourseID)
		if crErr != nil {
			return nil, fmt.Errorf("load course creators: %w", crErr)
		}
		allowed := false
		for _, id := range creatorIDs {
			if id == rd.UserID {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, ErrForbidden
		}
	}
	return s.members.Add(dbc, roomID, rd.UserID)
}

// Leave is idempotent; leaving a room you are not in is a no-op.
func (s *roomService) Leave(dbc dbctx.Context, roomID uuid.UUID) error {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return ErrNotAuthenticated
	}
	_, err := s.members.Remove(dbc, roomID, rd.UserID)
	return err
}

func (s *roomService) Rename(dbc dbctx.Context, roomID uuid.UUID, displayName string) (*types.ChatRoom, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name required", ErrInvalidInput)
	}
	var room *types.ChatRoom
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		// Lock the row so a concurrent rename cannot interleave between the
		// initiator check and the update.
		locked, lErr := s.rooms.LockByID(txc, roomID)
		if lErr != nil {
			return fmt.Errorf("lock room: %w", lErr)
		}
		if locked == nil {
			return ErrRoomNotFound
		}
		if locked.InitiatorID != rd.UserID {
			return ErrForbidden
		}
		if uErr := s.rooms.UpdateFields(txc, roomID, map[string]interface{}{"display_name": displayName}); uErr != nil {
			return fmt.Errorf("rename room: %w", uErr)
		}
		locked.DisplayName = displayName
		room = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.RoomRenamed(dbc.Ctx, room)
	}
	return room, nil
}
