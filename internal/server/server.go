// Package server contains the HTTP handlers for the profile API.
package server

import (
	"context"
	"log/slog"
	"time"

	"profileapi/internal/config"
	"profileapi/internal/job"
	"profileapi/internal/leaderboard"
	"profileapi/internal/middleware"
	"profileapi/internal/models"
	"profileapi/internal/notifications"
	"profileapi/internal/repository"
	"profileapi/internal/service"
	"profileapi/internal/subgraph"
	"profileapi/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "profile-api"

// Deps are the already-initialized dependencies a Server is built from.
// Fetcher defaults to a subgraph HTTP client.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Denylist *validation.Denylist
	Fetcher  job.ParticipantFetcher
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	notifier       *notifications.Notifier
	userRepo       repository.UserRepository
	profiles       *service.ProfileService
	leaderboards   *leaderboard.Service
	refresher      *job.LeaderboardRefresher
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	denylist := deps.Denylist
	if denylist == nil {
		var err error
		if denylist, err = validation.DefaultDenylist(); err != nil {
			return nil, err
		}
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = subgraph.NewClient(30 * time.Second)
	}

	userRepo := repository.NewUserRepository(deps.DB)
	profiles := service.NewProfileService(userRepo, denylist, deps.Redis)
	store := leaderboard.NewStore(deps.Redis)
	notifier := notifications.NewNotifier(deps.Redis)

	return &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics(serviceName),
		notifier:       notifier,
		userRepo:       userRepo,
		profiles:       profiles,
		leaderboards:   leaderboard.NewService(store),
		refresher: job.NewLeaderboardRefresher(
			fetcher, profiles, store, notifier, cfg.TestTradingCompURL, middleware.Logger,
		),
	}, nil
}

// Refresher exposes the leaderboard refresher so the scheduler can share it.
func (s *Server) Refresher() *job.LeaderboardRefresher {
	return s.refresher
}

// Notifier returns the server's event publisher.
func (s *Server) Notifier() *notifications.Notifier {
	return s.notifier
}

// NewApp builds a Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Profile API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(middleware.WithRequestContext(c), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{ContextKey: middleware.LocalRequestID}))

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.AdminKeyHeader,
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || middleware.RateLimitBypassed(s.config.Env)
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

func (s *Server) rateLimit(name string, limit int, window time.Duration) fiber.Handler {
	return middleware.RateLimit(s.redis, middleware.RateLimitConfig{
		Limit:  limit,
		Window: window,
		Name:   name,
		Env:    s.config.Env,
	})
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Profile API Metrics Dashboard",
	}))

	auth := middleware.AuthRequired(s.config.JWTSecret)

	// Specific /users routes before generic /:address
	users := api.Group("/users")
	users.Get("/valid/:username", s.rateLimit("username_check", 60, time.Minute), s.ValidateUsername)
	users.Post("/register", auth, s.rateLimit("register", 5, 10*time.Minute), s.Register)
	users.Put("/me/username", auth, s.rateLimit("change_username", 5, 10*time.Minute), s.ChangeUsername)
	users.Get("/", s.ListProfiles)
	users.Get("/:address", s.GetProfile)

	competitions := api.Group("/competitions")
	competitions.Get("/", s.ListCompetitions)
	competitions.Get("/reward-groups/:group", s.GetRewardGroup)
	competitions.Get("/:id", s.GetCompetition)

	lb := api.Group("/leaderboard")
	lb.Get("/", s.GetLeaderboard)
	lb.Get("/:address", s.GetLeaderboardEntry)

	admin := api.Group("/admin", middleware.AdminKeyRequired(s.config.AdminKeyHash))
	admin.Post("/leaderboard/:id/refresh", s.RefreshLeaderboard)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
