package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/coursetrade/coursetrade-backend/internal/http/handlers"
	httpMW "github.com/coursetrade/coursetrade-backend/internal/http/middleware"
)

type RouterConfig struct {
	ServiceName string

	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler    *httpH.AuthHandler
	CourseHandler  *httpH.CourseHandler
	RoomHandler    *httpH.RoomHandler
	MessageHandler *httpH.MessageHandler
	WSHandler      *httpH.WSHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.POST("/auth/logout", cfg.AuthHandler.Logout)
		}

		// Courses
		if cfg.CourseHandler != nil {
			protected.POST("/courses", cfg.CourseHandler.CreateCourse)
			protected.GET("/courses/:id", cfg.CourseHandler.GetCourse)
		}

		// Rooms
		if cfg.RoomHandler != nil {
			protected.POST("/rooms", cfg.RoomHandler.CreateRoom)
			protected.GET("/rooms", cfg.RoomHandler.ListRooms)
			protected.GET("/rooms/:id", cfg.RoomHandler.GetRoom)
			protected.PATCH("/rooms/:id", cfg.RoomHandler.RenameRoom)
			protected.POST("/rooms/:id/join", cfg.RoomHandler.JoinRoom)
			protected.POST("/rooms/:id/leave", cfg.RoomHandler.LeaveRoom)
			protected.GET("/rooms/:id/members", cfg.RoomHandler.ListMembers)
			protected.GET("/rooms/:id/messages", cfg.RoomHandler.ListMessages)
		}

		// Messages
		if cfg.MessageHandler != nil {
			protected.PATCH("/messages/:id", cfg.MessageHandler.EditMessage)
			protected.DELETE("/messages/:id", cfg.MessageHandler.DeleteMessage)
		}
	}

	// Websocket (auth via ?token=)
	if cfg.WSHandler != nil && cfg.AuthMiddleware != nil {
		r.GET("/ws", cfg.AuthMiddleware.RequireAuth(), cfg.WSHandler.Stream)
	}

	return r
}
