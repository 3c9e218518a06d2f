package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"staffhub/api/internal/clock"
	"staffhub/api/internal/config"
	"staffhub/api/internal/guard"
	"staffhub/api/internal/middleware"
	"staffhub/api/internal/models"
	"staffhub/api/internal/repository"
	"staffhub/api/internal/service"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	clock    *clock.SyncedClock
	guard    *guard.Guard
	watches  *guard.Registry
	auth     *service.AuthService
	sessions *service.SessionService
	audit    *service.AuditRecorder
	users    *repository.UserRepository
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	clk *clock.SyncedClock,
	g *guard.Guard,
	watches *guard.Registry,
	auth *service.AuthService,
	sessions *service.SessionService,
	audit *service.AuditRecorder,
	users *repository.UserRepository,
	db *pgxpool.Pool,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		clock:    clk,
		guard:    g,
		watches:  watches,
		auth:     auth,
		sessions: sessions,
		audit:    audit,
		users:    users,
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.GET("/time", h.ServerTime)

	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", h.Login)

		authed := v1.Group("")
		authed.Use(middleware.Auth(h.cfg, h.users, h.sessions))
		authed.POST("/auth/logout", h.Logout)
		authed.POST("/session/close", h.CloseSession)

		// Identity-only auth: a client whose session was force-closed still
		// needs to read the denial state and the next-window countdown.
		v1.GET("/access-state", middleware.AuthIdentity(h.cfg, h.users), h.AccessState)

		privileged := v1.Group("")
		privileged.Use(
			middleware.Auth(h.cfg, h.users, h.sessions),
			middleware.AccessWindow(h.guard),
			middleware.RequireRoles(models.UserRoleManager, models.UserRoleAdmin),
		)
		privileged.GET("/sessions/active", h.ActiveSessions)
		privileged.GET("/sessions", h.ListSessions)

		admin := v1.Group("/admin")
		admin.Use(
			middleware.Auth(h.cfg, h.users, h.sessions),
			middleware.RequireRoles(models.UserRoleAdmin),
			middleware.Audit(h.audit, h.clock),
		)
		admin.POST("/users/:userId/force-logout", h.ForceLogout)
	}
}
