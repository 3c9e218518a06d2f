package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"staffhub/api/internal/access"
	"staffhub/api/internal/cache"
	"staffhub/api/internal/clock"
	"staffhub/api/internal/config"
	"staffhub/api/internal/database"
	"staffhub/api/internal/guard"
	"staffhub/api/internal/handlers"
	"staffhub/api/internal/jobs"
	"staffhub/api/internal/log"
	"staffhub/api/internal/repository"
	"staffhub/api/internal/server"
	"staffhub/api/internal/service"
	"staffhub/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	policy, err := buildPolicy(cfg.Access)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid access window config")
	}

	timeSourceURL := cfg.Clock.TimeSourceURL
	if timeSourceURL == "" {
		timeSourceURL = fmt.Sprintf("http://127.0.0.1:%d/api/time", cfg.HTTP.Port)
	}
	syncedClock := clock.NewSyncedClock(timeSourceURL, cfg.Clock.SyncTimeout)

	var objectStore *storage.ObjectStore
	if cfg.Audit.ArchiveEnabled && cfg.Storage.Endpoint != "" {
		objectStore, err = storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure audit bucket failed")
		}
	}

	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)

	presence := cache.NewPresenceTracker(redisClient, cfg.Access.RecencyThreshold)
	sessionService := service.NewSessionService(sessionRepo, presence, syncedClock, cfg.Access.RecencyThreshold, logger)
	authService := service.NewAuthService(userRepo, sessionService, cfg, logger)
	auditRecorder := service.NewAuditRecorder(auditRepo, cfg.Audit.BufferSize, logger)

	accessGuard := guard.New(policy, syncedClock, sessionService, cfg.Access.PollInterval, logger)
	watchRegistry := guard.NewRegistry(accessGuard)

	handlerSet := handlers.NewHandlerSet(
		logger, cfg, syncedClock, accessGuard, watchRegistry,
		authService, sessionService, auditRecorder,
		userRepo, dbPool, redisClient,
	)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(syncedClock, policy, sessionService, auditRepo, objectStore, cfg.Clock.ResyncInterval, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// First sync once the listener is up; failure just leaves the clock in
	// degraded local-time mode until the next scheduled attempt.
	go func() {
		time.Sleep(time.Second)
		syncCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := syncedClock.Sync(syncCtx); err != nil {
			logger.Warn().Err(err).Msg("initial clock sync failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, watchRegistry, auditRecorder, dbPool, redisClient)
}

func buildPolicy(cfg config.AccessConfig) (access.Policy, error) {
	start, err := access.ParseTimeOfDay(cfg.WindowStart)
	if err != nil {
		return access.Policy{}, err
	}
	end, err := access.ParseTimeOfDay(cfg.WindowEnd)
	if err != nil {
		return access.Policy{}, err
	}

	loc := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return access.Policy{}, fmt.Errorf("load timezone: %w", err)
		}
	}

	return access.Policy{WindowStart: start, WindowEnd: end, Location: loc}, nil
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	watches *guard.Registry,
	audit *service.AuditRecorder,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(shutdownCtx)
	watches.StopAll()
	audit.Close()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
