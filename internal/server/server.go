// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "campusnet/docs" // swagger docs
	"campusnet/internal/bootstrap"
	"campusnet/internal/config"
	"campusnet/internal/middleware"
	"campusnet/internal/models"
	"campusnet/internal/notifications"
	"campusnet/internal/observability"
	"campusnet/internal/repository"
	"campusnet/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	runtime        *bootstrap.Runtime
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	authService    *service.AuthService
	followService  *service.FollowService
	postService    *service.PostService
	userService    *service.UserService
	mediaService   *service.MediaService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt)
}

// NewServerWithDeps creates a Server using an already-initialized runtime.
// Use this in tests or when the caller owns the store connections.
func NewServerWithDeps(cfg *config.Config, rt *bootstrap.Runtime) (*Server, error) {
	if rt == nil || rt.Users == nil || rt.Posts == nil {
		return nil, errors.New("runtime with user and post repositories is required")
	}

	server := &Server{
		config:         cfg,
		runtime:        rt,
		redis:          rt.Redis,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		userRepo:       rt.Users,
		postRepo:       rt.Posts,
	}

	// Initialize notifier and hub if Redis is available
	var notifier service.ActivityNotifier
	if rt.Redis != nil {
		server.notifier = notifications.NewNotifier(rt.Redis)
		server.hub = notifications.NewHub()
		notifier = server.notifier
	}

	server.authService = service.NewAuthService(server.userRepo, service.AuthConfig{
		Secret: cfg.JWTSecret,
		TTL:    time.Duration(cfg.SessionTTLHours) * time.Hour,
	})
	server.followService = service.NewFollowService(server.userRepo, notifier)
	server.postService = service.NewPostService(server.postRepo, server.userRepo, notifier)
	server.userService = service.NewUserService(server.userRepo, server.postRepo)
	server.mediaService = service.NewMediaService(cfg.UploadDir, cfg.MediaPrefix, cfg.MaxUploadMB)

	models.ErrorReporter = observability.ReportError
	return server, nil
}

// App builds the fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "CampusNet API",
		BodyLimit:    (s.config.MaxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Success: false, Message: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers; uploaded media is embedded by the web client on another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Success: false,
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(s.mediaService.Prefix(), s.mediaService.Dir(), fiber.Static{
		MaxAge: 3600,
	})

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "CampusNet Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Session routes
	users := api.Group("/user")
	users.Post("/register", middleware.RateLimit(
		s.redis, middleware.RegisterPolicy), s.Register)
	users.Post("/login", middleware.RateLimit(
		s.redis, middleware.LoginPolicy), s.Login)
	users.Get("/logout", s.Logout)
	users.Post("/logout", s.Logout)

	// Protected user routes
	users.Get("/me", s.AuthRequired(), s.GetMe)
	users.Get("/search", s.AuthRequired(), middleware.RateLimit(
		s.redis, middleware.SearchPolicy), s.SearchUsers)
	users.Get("/profile/:id", s.AuthRequired(), s.GetProfile)
	users.Post("/togglefollow/:id", s.AuthRequired(), s.ToggleFollow)

	// Post routes
	posts := api.Group("/post", s.AuthRequired())
	posts.Post("/create", middleware.RateLimit(
		s.redis, middleware.CreatePostPolicy), s.CreatePost)
	posts.Delete("/delete/:id", s.DeletePost)
	posts.Put("/like/:id", s.ToggleLike)
	posts.Put("/bookmark/:id", s.ToggleBookmark)
	posts.Put("/comment/:id", middleware.RateLimit(
		s.redis, middleware.CommentPolicy), s.AddComment)
	posts.Post("/share/:id", s.SharePost)
	// Feed routes before the generic /:id route
	posts.Get("/all", s.GetGlobalFeed)
	posts.Get("/following", s.GetFollowingFeed)
	posts.Get("/bookmarked", s.GetBookmarkedFeed)
	posts.Get("/user/:userId", s.GetAuthorFeed)
	posts.Get("/:id", s.GetPost)

	// Websocket endpoint - protected by AuthRequired
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())
}

// LivenessCheck reports that the process is serving.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports store and redis health.
// Redis is optional: a missing client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.userRepo.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store":  storeStatus,
			"driver": s.runtime.Driver,
			"redis":  redisStatus,
		},
		"time": time.Now(),
	})
}

// StartBackground starts the notification fan-out to websocket clients.
func (s *Server) StartBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if s.notifier == nil || s.hub == nil {
		return
	}
	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		middleware.Logger.Error("failed to start notification wiring", "error", err)
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	s.StartBackground()

	middleware.Logger.Info(fmt.Sprintf("Server starting on port %s...", s.config.Port))
	return app.Listen(":" + strings.TrimPrefix(s.config.Port, ":"))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the wiring goroutine
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down notification hub", "error", err)
		}
	}

	if err := s.runtime.Close(ctx); err != nil {
		middleware.Logger.Error("error closing runtime", "error", err)
		return err
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
