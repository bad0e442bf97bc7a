package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursetrade/coursetrade-backend/internal/http/response"
	"github.com/coursetrade/coursetrade-backend/internal/platform/apierr"
	"github.com/coursetrade/coursetrade-backend/internal/services"
)

// respondServiceError maps service sentinels onto HTTP status codes.
func respondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		response.RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	switch {
	case errors.Is(err, services.ErrNotAuthenticated), errors.Is(err, services.ErrInvalidLogin):
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, services.ErrInvalidInput):
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, services.ErrRoomExists):
		response.RespondError(c, http.StatusConflict, "room_exists", err)
	case errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrNotMember), errors.Is(err, services.ErrForbidden):
		response.RespondError(c, http.StatusForbidden, "forbidden", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
