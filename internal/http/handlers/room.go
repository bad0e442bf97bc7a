package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursetrade/coursetrade-backend/internal/http/response"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/dbctx"
	"github.com/coursetrade/coursetrade-backend/internal/services"
)

type RoomHandler struct {
	rooms    services.RoomService
	messages services.MessageService
}

func NewRoomHandler(rooms services.RoomService, messages services.MessageService) *RoomHandler {
	return &RoomHandler{rooms: rooms, messages: messages}
}

type createRoomReq struct {
	CourseID    uuid.UUID `json:"course_id"`
	DisplayName string    `json:"display_name"`
}

// POST /api/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req createRoomReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	room, err := h.rooms.CreateRoom(dbc, req.CourseID, req.DisplayName)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"room": room})
}

// GET /api/rooms?limit=100
func (h *RoomHandler) ListRooms(c *gin.Context) {
	limit := 0
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rooms, err := h.rooms.ListMyRooms(dbc, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rooms": rooms})
}

// GET /api/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	room, err := h.rooms.GetRoom(dbc, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"room": room})
}

// GET /api/rooms/:id/members
func (h *RoomHandler) ListMembers(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	members, err := h.rooms.Members(dbc, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": members})
}

// POST /api/rooms/:id/join
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	member, err := h.rooms.Join(dbc, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	// member is nil when the caller was already in the room.
	response.RespondOK(c, gin.H{"member": member, "already_member": member == nil})
}

// POST /api/rooms/:id/leave
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.rooms.Leave(dbc, roomID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type renameRoomReq struct {
	DisplayName string `json:"display_name"`
}

// PATCH /api/rooms/:id
func (h *RoomHandler) RenameRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	var req renameRoomReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	room, err := h.rooms.Rename(dbc, roomID, req.DisplayName)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"room": room})
}

// GET /api/rooms/:id/messages?limit=50&before_seq=123
func (h *RoomHandler) ListMessages(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", err)
		return
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var before *int64
	if v := strings.TrimSpace(c.Query("before_seq")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			before = &n
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	msgs, err := h.messages.History(dbc, roomID, limit, before)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}
