package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"sismobi/internal/cache"
	"sismobi/internal/cli"
	apphttp "sismobi/internal/http"
	applog "sismobi/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	agg := cli.NewAggregator(logger, cfg)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(agg.Caches()...)
	cacheManager.StartCleanup(cfg.CacheClearInterval)

	srv := apphttp.NewServer(":"+cfg.Port, be.Store, agg, apphttp.Options{
		APIToken: cfg.APIToken,
		Cache:    cacheManager,
		Logger:   logger,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		cacheManager.Stop()
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting sismobi server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth_enabled", cfg.APIToken != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
