package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/api"
	"github.com/bcnelson/blackbox-target-manager/internal/config"
	"github.com/bcnelson/blackbox-target-manager/internal/logging"
	"github.com/bcnelson/blackbox-target-manager/internal/service"
	"github.com/bcnelson/blackbox-target-manager/internal/storage/memory"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.NewLogger("server", cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize storage
	store := memory.New()
	defer store.Close()

	svc := service.NewTargetService(store, logger)
	if cfg.Server.SeedProbes {
		if err := svc.EnsureDefaultProbes(context.Background()); err != nil {
			logger.Fatal("seeding probes failed", zap.Error(err))
		}
	}

	router := api.NewRouter(svc, logger, cfg.Server.Origins())

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("server_starting", zap.String("addr", cfg.Server.Addr()))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server_stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
		return
	}

	logger.Info("server_stopped")
}
