package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/noteduco342/LectureQA-backend/internal/cache"
	"github.com/noteduco342/LectureQA-backend/internal/handlers"
	"github.com/noteduco342/LectureQA-backend/internal/middleware"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
	"github.com/noteduco342/LectureQA-backend/internal/repository"
	"github.com/noteduco342/LectureQA-backend/internal/service"
	"github.com/noteduco342/LectureQA-backend/internal/storage"
)

func envDuration(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using default", name, v)
		return 0
	}
	return d
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Lecture QA Backend",
		// Room for a handful of image attachments per message.
		BodyLimit: 48 * 1024 * 1024, // 48MB
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	overrideCache := cache.NewOverrideCache(redisCache)
	unreadCache := cache.NewUnreadCache(redisCache)

	// Initialize repositories
	threadRepo := repository.NewThreadRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Realtime bus. The Redis transport fans local events out to other
	// instances; timings come from env with sane defaults.
	var transport realtime.Transport
	if redisCache != nil {
		transport = realtime.NewRedisTransport(redisCache)
	}
	bus := realtime.NewBus(realtime.Config{
		RefetchDelay: envDuration("QA_REFETCH_DELAY"),
		Cooldown:     envDuration("QA_READ_COOLDOWN"),
		PollInterval: envDuration("QA_POLL_INTERVAL"),
	}, realtime.NewTimerScheduler(), transport)
	defer bus.Close()

	// Initialize S3/MinIO storage (best-effort; sending attachments fails
	// with 502 while it is missing)
	var uploader service.Uploader
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		uploader = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Initialize services
	allowStudentEdit, _ := strconv.ParseBool(os.Getenv("QA_ALLOW_STUDENT_EDIT"))
	threadService := service.NewThreadService(threadRepo, bus)
	messageService := service.NewMessageService(messageRepo, threadRepo, uploader, bus, service.MessagePolicy{
		AllowStudentEdit: allowStudentEdit,
	})
	readStateService := service.NewReadStateService(threadRepo, overrideCache, bus)
	unreadService := service.NewUnreadService(threadRepo, readStateService, unreadCache)

	// Cached counts go stale the moment anything changes; every refresh
	// signal drops them so the next read recomputes.
	unreadSub := unreadService.WatchBus(bus)
	defer unreadSub.Unsubscribe()

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(bus)
	threadHandler := handlers.NewThreadHandler(threadService, readStateService)
	messageHandler := handlers.NewMessageHandler(messageService)
	unreadHandler := handlers.NewUnreadHandler(unreadService)

	// Poll fallback: bound staleness when the realtime channel drops.
	// Skipped automatically inside the mark-as-read cooldown window.
	stopPoll := bus.StartPoll(func() {
		unreadService.Invalidate()
		wsHandler.GetHub().Broadcast(map[string]string{"type": "poll_refresh"})
	})
	defer stopPoll()

	// Routes
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
	}))

	protected := api.Group("/", middleware.AuthRequired())
	protected.Get("/lectures/:lectureID/threads", threadHandler.ListThreads)
	protected.Post("/threads", threadHandler.CreateThread)
	protected.Get("/threads/:id", threadHandler.GetThread)
	protected.Put("/threads/:id/question", threadHandler.EditQuestionText)
	protected.Put("/threads/:id/publish", middleware.RequireMentor(), threadHandler.TogglePublish)
	protected.Delete("/threads/:id", threadHandler.DeleteThread)
	protected.Post("/threads/:id/read", threadHandler.MarkAsRead)
	protected.Get("/threads/:id/messages", messageHandler.ListMessages)
	protected.Post("/threads/:id/messages", messageHandler.SendMessage)
	protected.Put("/messages/:id", messageHandler.EditMessage)
	protected.Delete("/messages/:id", messageHandler.DeleteMessage)
	protected.Get("/unread", unreadHandler.GetUnreadCount)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Lecture QA is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
