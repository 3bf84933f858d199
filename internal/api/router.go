package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/rbxgroups/ranking-system/docs"
	"github.com/rbxgroups/ranking-system/internal/api/handler"
	"github.com/rbxgroups/ranking-system/internal/api/middleware"
	"github.com/rbxgroups/ranking-system/internal/core/domain"
	"github.com/rbxgroups/ranking-system/internal/core/ports"
	"github.com/rbxgroups/ranking-system/internal/core/service"
	mongodb "github.com/rbxgroups/ranking-system/internal/infrastructure/db/mongo"
)

// Deps carries everything the HTTP layer needs. The ranking service and
// group client are built by the caller so the reconciler can share them.
type Deps struct {
	Mongo     *mongo.Database
	Redis     *redis.Client
	Client    ports.GroupClient
	Ranking   ports.RankingService
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("grouprank"))

	// --- Operator accounts ---
	authRepo := mongodb.NewOperatorRepository(deps.Mongo)
	authService := service.NewAuthService(authRepo, deps.JWTSecret, 24*time.Hour)
	authHandler := handler.NewAuthHandler(authService)
	authMiddleware := middleware.Auth(deps.JWTSecret)

	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes and operational surface (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis, deps.Client)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Ranking routes ---
	memberHandler := handler.NewMemberHandler(deps.Ranking)
	groupHandler := handler.NewGroupHandler(deps.Ranking)
	sessionHandler := handler.NewSessionHandler(deps.Ranking, deps.Log)

	v1 := e.Group("/v1", authMiddleware)

	members := v1.Group("/members")
	members.GET("/:identifier/rank", memberHandler.GetRank, middleware.RBAC(domain.RoleRanker))
	members.PUT("/:identifier/rank", memberHandler.SetRank, middleware.RBAC(domain.RoleRanker))
	members.POST("/:identifier/ban", memberHandler.Ban, middleware.RBAC())
	members.POST("/:identifier/suspension", memberHandler.Suspend, middleware.RBAC(domain.RoleModerator))

	group := v1.Group("/group")
	group.GET("/roles", groupHandler.Roles, middleware.RBAC(domain.RoleRanker))
	group.PUT("/shout", groupHandler.SetShout, middleware.RBAC())
	group.DELETE("/shout", groupHandler.ClearShout, middleware.RBAC())

	v1.POST("/session/reset", sessionHandler.Reset, middleware.RBAC())

	return e
}
