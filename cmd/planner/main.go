package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/trip-planner-service/internal/adapter/http"
	"github.com/couchcryptid/trip-planner-service/internal/app"
	"github.com/couchcryptid/trip-planner-service/internal/config"
	"github.com/couchcryptid/trip-planner-service/internal/itinerary"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := app.NewEngine(ctx, cfg, metrics, logger)
	planner := itinerary.NewPlanner(itinerary.SampleGenerator{}, engine.Coordinator, itinerary.NoopOptimizer{}, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine.Cache, engine.Coordinator, planner, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	engine.Close(shutdownCtx)

	logger.Info("shutdown complete")
}
