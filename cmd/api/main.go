package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"codepair/api/internal/cache"
	"codepair/api/internal/config"
	"codepair/api/internal/database"
	"codepair/api/internal/handlers"
	"codepair/api/internal/identity"
	"codepair/api/internal/jobs"
	"codepair/api/internal/log"
	"codepair/api/internal/repository"
	"codepair/api/internal/rtc"
	"codepair/api/internal/server"
	"codepair/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	if err := database.Migrate(cfg.Postgres); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	videoClient, err := rtc.NewVideoClient(cfg.RTC)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init video client")
	}
	chatClient, err := rtc.NewChatClient(cfg.RTC)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init chat client")
	}

	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)

	resolver := service.NewIdentityResolver(userRepo, identity.NewClient(cfg.Identity), videoClient, chatClient, logger)
	sessionService := service.NewSessionService(sessionRepo, userRepo, videoClient, chatClient, logger)
	userService := service.NewUserService(userRepo, redisClient, cfg.Sessions.LeaderboardTTL, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, sessionService, userService, resolver, dbPool, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(sessionService, cfg.Sessions, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
