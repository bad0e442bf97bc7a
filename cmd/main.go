package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coursetrade/coursetrade-backend/internal/data/db"
	"github.com/coursetrade/coursetrade-backend/internal/data/repos"
	httpx "github.com/coursetrade/coursetrade-backend/internal/http"
	httpH "github.com/coursetrade/coursetrade-backend/internal/http/handlers"
	httpMW "github.com/coursetrade/coursetrade-backend/internal/http/middleware"
	"github.com/coursetrade/coursetrade-backend/internal/observability"
	"github.com/coursetrade/coursetrade-backend/internal/pkg/logger"
	"github.com/coursetrade/coursetrade-backend/internal/realtime"
	"github.com/coursetrade/coursetrade-backend/internal/realtime/bus"
	"github.com/coursetrade/coursetrade-backend/internal/services"
	"github.com/coursetrade/coursetrade-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	listenAddr := utils.GetEnv("LISTEN_ADDR", ":8080", log)
	serviceName := utils.GetEnv("SERVICE_NAME", "coursetrade-backend", log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAll(dbService.DB()); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	gdb := dbService.DB()

	// Repos
	userRepo := repos.NewUserRepo(gdb, log)
	userTokenRepo := repos.NewUserTokenRepo(gdb, log)
	courseRepo := repos.NewCourseRepo(gdb, log)
	roomRepo := repos.NewChatRoomRepo(gdb, log)
	memberRepo := repos.NewChatRoomMemberRepo(gdb, log)
	messageRepo := repos.NewChatMessageRepo(gdb, log)

	// Realtime
	dispatcher := realtime.NewDispatcher(log, memberRepo, messageRepo)
	var eventBus bus.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		eventBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis bus init failed; running local-only fan-out", "error", err)
		} else {
			dispatcher.SetPublisher(eventBus)
			if err := eventBus.StartForwarder(ctx, dispatcher.Deliver); err != nil {
				log.Warn("Redis bus forwarder failed to start", "error", err)
			}
		}
	}

	// Services
	notifier := services.NewRoomNotifier(dispatcher)
	authService := services.NewAuthService(gdb, log, userRepo, userTokenRepo, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	courseService := services.NewCourseService(gdb, log, courseRepo)
	roomService := services.NewRoomService(gdb, log, roomRepo, memberRepo, courseRepo, userRepo, notifier)
	messageService := services.NewMessageService(gdb, log, memberRepo, messageRepo, userRepo, notifier)

	// HTTP
	server := httpx.NewServer(httpx.RouterConfig{
		ServiceName:    serviceName,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, authService),
		AuthHandler:    httpH.NewAuthHandler(authService),
		CourseHandler:  httpH.NewCourseHandler(courseService),
		RoomHandler:    httpH.NewRoomHandler(roomService, messageService),
		MessageHandler: httpH.NewMessageHandler(messageService),
		WSHandler:      httpH.NewWSHandler(log, dispatcher),
		HealthHandler:  httpH.NewHealthHandler(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", listenAddr)
		return server.Run(listenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if eventBus != nil {
			_ = eventBus.Close()
		}
		if otelShutdown != nil {
			_ = otelShutdown(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
