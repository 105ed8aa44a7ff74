package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-engine/internal/archive"
	"chat-engine/internal/auth"
	"chat-engine/internal/config"
	"chat-engine/internal/coordinator"
	"chat-engine/internal/db"
	"chat-engine/internal/dispatcher"
	"chat-engine/internal/handlers"
	"chat-engine/internal/middleware"
	"chat-engine/internal/msglog"
	"chat-engine/internal/observability"
	"chat-engine/internal/rabbitmq"
	"chat-engine/internal/registry"
	"chat-engine/internal/repositories"
	"chat-engine/internal/rooms"
	"chat-engine/internal/telemetry"
	"chat-engine/internal/ws"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	shutdownTracing := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, "chat-engine", cfg.Environment)
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.chat", "chat-engine", cfg.Environment)

	var archiveWorker *archive.Worker
	if cfg.ArchiveDSN != "" {
		database, err := db.Connect(cfg.ArchiveDSN)
		if err != nil {
			log.Fatalf("failed to connect to archive db: %v", err)
		}
		archiveWorker = archive.NewWorker(repositories.NewArchiveRepo(database))
	} else {
		archiveWorker = archive.NewWorker(nil)
	}
	archiveWorker.Start(ctx)
	defer archiveWorker.Close()

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	reg := registry.New(cfg.GraceWindow)
	roomDir := rooms.NewDirectory()
	messageLog := msglog.NewLog()

	coord := coordinator.New(reg, roomDir, messageLog)
	disp := dispatcher.New(reg, roomDir, messageLog, coord, archiveWorker)

	wsHandler := ws.NewHandler(verifier, coord, disp, auditEmitter)
	queryHandler := handlers.NewQueryHandler(reg, roomDir, messageLog, auditEmitter)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chat-engine"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/ws", wsHandler.Handle)

	router.GET("/rooms", authMiddleware, queryHandler.ListRooms)
	router.GET("/rooms/:room_id/messages", authMiddleware, queryHandler.GetRoomMessages)
	router.GET("/rooms/:room_id/stats", authMiddleware, queryHandler.GetRoomStats)
	router.GET("/users/online", authMiddleware, queryHandler.ListOnlineUsers)

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
