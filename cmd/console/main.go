package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/client"
	"github.com/bcnelson/blackbox-target-manager/internal/config"
	"github.com/bcnelson/blackbox-target-manager/internal/console"
	"github.com/bcnelson/blackbox-target-manager/internal/logging"
	"github.com/bcnelson/blackbox-target-manager/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.NewLogger("console", cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Backend.URL, cfg.Backend.Timeout, logger)
	c := console.New(api, cfg.Console.PollInterval, logger)
	defer c.Close()

	// The page still serves when the backend is down; the poller and the
	// refresh button pick it up later.
	err = c.Bootstrap(ctx, console.BootstrapOptions{
		Attempts: cfg.Backend.StartupAttempts,
		Delay:    cfg.Backend.StartupRetryWait,
	})
	if err != nil {
		logger.Error("console_bootstrap_failed", zap.String("backend", cfg.Backend.URL), zap.Error(err))
	}
	c.StartPolling(ctx)

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Fatal("loading templates failed", zap.Error(err))
	}
	hub := web.NewHub(renderer, logger)
	go hub.Run(ctx)

	server := &http.Server{
		Addr:         cfg.Console.Addr(),
		Handler:      web.NewServer(c, renderer, hub, logger).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("console_starting",
		zap.String("addr", cfg.Console.Addr()),
		zap.String("backend", cfg.Backend.URL),
		zap.Duration("poll_interval", cfg.Console.PollInterval),
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("console server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("console_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
		return
	}
	logger.Info("console_stopped")
}
