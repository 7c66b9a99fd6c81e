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

	"github.com/rs/zerolog"

	"alpr-service/internal/annotate"
	"alpr-service/internal/auth"
	"alpr-service/internal/config"
	"alpr-service/internal/db"
	httphandler "alpr-service/internal/http"
	"alpr-service/internal/http/middleware"
	"alpr-service/internal/logger"
	"alpr-service/internal/pipeline"
	"alpr-service/internal/plate"
	"alpr-service/internal/recognizer"
	"alpr-service/internal/repository"
	"alpr-service/internal/service"
	"alpr-service/internal/storage"
)

const retentionInterval = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	detector, err := recognizer.New(ctx, cfg.Recognizer)
	if err != nil {
		appLogger.Fatal().Err(err).Str("backend", cfg.Recognizer.Backend).Msg("failed to initialize recognizer")
	}

	// R2 is optional; without it annotated snapshots are not stored.
	var uploader service.SnapshotUploader
	r2Client, err := storage.NewR2Client(cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		appLogger.Warn().Msg("R2 storage not configured, snapshot uploads will be disabled")
	case err != nil:
		appLogger.Fatal().Err(err).Msg("failed to initialize R2 client")
	default:
		uploader = r2Client
	}

	resolver := plate.NewResolver(nil)
	framePipeline := pipeline.New(
		detector,
		resolver,
		annotate.New(),
		pipeline.NewMemory(cfg.Detection.MemoryFrames),
		cfg.Detection.MinConfidence,
		appLogger,
	)

	alprRepo := repository.NewALPRRepository(database)
	alprService := service.NewALPRService(alprRepo, framePipeline, uploader, resolver, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(
		alprService,
		cfg,
		appLogger,
		middleware.RateLimit(cfg.Upload.RatePerSecond, cfg.Upload.Burst),
	)
	router := httphandler.NewRouter(
		handler,
		middleware.Auth(tokenParser),
		middleware.RequireAdmin(),
		cfg.Environment,
		database,
		appLogger,
	)

	go runRetention(ctx, alprService, cfg.RetentionDays, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().
		Str("addr", addr).
		Str("recognizer", cfg.Recognizer.Backend).
		Msg("starting ALPR service")

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	appLogger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}

// runRetention deletes expired frames once at startup and then daily.
func runRetention(ctx context.Context, svc *service.ALPRService, days int, log zerolog.Logger) {
	if days <= 0 {
		log.Info().Msg("retention disabled")
		return
	}

	cleanup := func() {
		if _, err := svc.CleanupOldDetections(ctx, days); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Int("days", days).Msg("retention cleanup failed")
		}
	}

	cleanup()
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanup()
		}
	}
}
