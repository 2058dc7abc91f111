package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldtech/internal/auth"
	"fieldtech/internal/config"
	"fieldtech/internal/db"
	httphandler "fieldtech/internal/http"
	"fieldtech/internal/http/middleware"
	"fieldtech/internal/idempotency"
	"fieldtech/internal/logger"
	"fieldtech/internal/repository"
	"fieldtech/internal/service"
	"fieldtech/internal/storage"
	"fieldtech/internal/telemetry"
)

const demoTechnicianID = "tech-1"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup("dispatch-service", appLogger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			appLogger.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	var idem idempotency.Store
	if cfg.Redis.Addr != "" {
		redisStore, err := idempotency.NewRedis(ctx, cfg.Redis)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer redisStore.Close()
		idem = redisStore
	} else {
		appLogger.Warn().Msg("REDIS_ADDR not set, idempotency keys kept in memory")
		idem = idempotency.NewMemory(cfg.Redis.KeyTTL)
	}

	photos, err := storage.NewLocal(cfg.Storage.Dir)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to prepare storage")
	}

	if cfg.SeedDemo || cfg.Environment == "development" {
		seedDemo(ctx, cfg, database, appLogger)
	}

	ticketRepo := repository.NewTicketRepository(database)
	eventRepo := repository.NewEventRepository(database)
	ticketService := service.NewTicketService(ticketRepo, eventRepo, idem, photos, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(ticketService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, photos.Dir())

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           telemetry.Handler(router, "dispatch-service"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	appLogger.Info().Str("addr", addr).Msg("starting dispatch service")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Error().Err(err).Msg("failed to start server")
		stop()
		os.Exit(1)
	}
	appLogger.Info().Msg("dispatch service stopped")
}
