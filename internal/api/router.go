package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/littlesprouts/center-api/internal/api/handler"
	"github.com/littlesprouts/center-api/internal/api/middleware"
	"github.com/littlesprouts/center-api/internal/core/domain"
	"github.com/littlesprouts/center-api/internal/core/ports"
	"github.com/littlesprouts/center-api/internal/core/service"
	"github.com/littlesprouts/center-api/internal/infrastructure/config"
	mongodb "github.com/littlesprouts/center-api/internal/infrastructure/db/mongo"
	redisdb "github.com/littlesprouts/center-api/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, audit ports.AuditSink, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("centerapi"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	sessionStore := redisdb.NewSessionStore(rdb)
	authService := service.NewAuthService(userRepo, sessionStore, audit, cfg.BaseURL, cfg.SessionTTL, log)
	authHandler := handler.NewAuthHandler(authService, cfg.Production())
	adminHandler := handler.NewAdminHandler(authService)

	// Session resolution runs on every route; rejection is left to the
	// per-route gates so anonymous endpoints share the same chain.
	e.Use(middleware.Session(sessionStore, userRepo, log))

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.POST("/auth/qr-login", authHandler.QRLogin)

	authed := e.Group("/auth", middleware.RequireAuth())
	authed.GET("/me", authHandler.Me)
	authed.PATCH("/profile", authHandler.UpdateProfile)
	authed.POST("/generate-qr-token", authHandler.GenerateQR)
	authed.POST("/disable-qr", authHandler.DisableQR)

	// --- Admin routes ---
	admin := e.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id/role", adminHandler.ChangeRole)

	// --- Operational endpoints ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
