package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fundops/api/internal/accesscache"
	"fundops/api/internal/app"
	"fundops/api/internal/config"
	"fundops/api/internal/export"
	"fundops/api/internal/logging"
	"fundops/api/internal/search"
	"fundops/api/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, logger)
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", zap.Strings("versions", applied))
	}

	deps := app.Dependencies{
		Logger: logger,
		Probes: map[string]func(context.Context) error{},
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		cache, err := accesscache.NewRedisCache(cfg.RedisURL, cfg.AccessCacheTTL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer cache.Close()
		deps.AccessCache = cache
		deps.Probes["redis"] = cache.Ping
		logger.Info("access cache enabled", zap.Duration("ttl", cfg.AccessCacheTTL))
	}

	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		deps.SearchIndex = meiliClient
		deps.Probes["search"] = func(context.Context) error {
			if !meiliClient.Healthy() {
				return errors.New("meilisearch unreachable")
			}
			return nil
		}
	}

	if pdf, err := export.NewChromePDF(cfg.ChromiumPath); err != nil {
		logger.Warn("pdf export disabled", zap.Error(err))
	} else {
		deps.PDF = pdf
	}

	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		archiver, err := export.NewMinioArchiver(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			return fmt.Errorf("object storage init failed: %w", err)
		}
		deps.Archiver = archiver
		logger.Info("report archival enabled", zap.String("bucket", cfg.S3Bucket))
	}

	service := app.New(cfg, store.NewPostgresStore(db), deps)
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap error (will retry on next restart)", zap.Error(err))
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("fundops API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}
