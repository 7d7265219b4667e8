package main

import (
	"context"
	"os"
	"time"

	"sismobi/internal/cli"
	applog "sismobi/internal/log"
	"sismobi/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting sismobi-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	be := cli.InitBackend(context.Background(), logger, cfg)
	agg := cli.NewAggregator(logger, cfg)

	reconciler := services.NewReconciler(be.Store, agg, be.Publisher, be.Exporter, services.ReconcilerConfig{
		Interval:   cfg.ReconcileInterval,
		MaxCatchUp: services.DefaultReconcilerConfig().MaxCatchUp,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := reconciler.Stop(ctx); err != nil {
			logger.Error("Reconciler stop error", applog.FieldError, err.Error())
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err.Error())
		}
	})

	if err := reconciler.Start(ctx); err != nil {
		logger.Error("Failed to start reconciler", applog.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
