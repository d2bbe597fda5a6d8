package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcserver "licenseguard/backend/internal/grpc"
	"licenseguard/backend/internal/repository"
	"licenseguard/backend/pkg/config"
	"licenseguard/backend/pkg/di"
	"licenseguard/backend/pkg/logger"
	"licenseguard/backend/pkg/router"
	"licenseguard/backend/pkg/secrets"
)

func main() {
	// Loads .env on first use
	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secretManager, err := secrets.NewManager(cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize secret manager")
		os.Exit(1)
	}
	secrets.Apply(ctx, secretManager, cfg)

	db, err := config.NewDB(cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := repository.Migrate(db); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	container, err := di.New(ctx, cfg, db, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// replies wait on the analysis engine
		WriteTimeout: cfg.Server.Timeout + cfg.Analysis.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	grpcSrv := grpcserver.NewServer(container.Health, log)

	container.Health.Start(ctx)
	if cfg.Retry.Enabled {
		container.Retrier.Start(ctx)
	}

	serverErrors := make(chan error, 2)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	go func() {
		log.Info("gRPC server starting", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(":" + cfg.Server.GRPCPort); err != nil {
			serverErrors <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErrors:
		log.LogError(err, "Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	grpcSrv.Stop(shutdownCtx)

	container.Retrier.Stop()
	r.Stop()

	if err := container.Close(shutdownCtx); err != nil {
		log.LogError(err, "Failed to release resources")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Server exited gracefully")
}
