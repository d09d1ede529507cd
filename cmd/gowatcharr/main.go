package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/amaumene/gowatcharr/internal/api"
	"github.com/amaumene/gowatcharr/internal/config"
	"github.com/amaumene/gowatcharr/internal/history"
	"github.com/amaumene/gowatcharr/internal/ledger"
	"github.com/amaumene/gowatcharr/internal/models"
	"github.com/amaumene/gowatcharr/internal/scheduler"
	"github.com/amaumene/gowatcharr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Gowatcharr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Open the key-value store
	store, err := models.NewStore(cfg.DatabaseFile, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	logger.Info("Store opened")

	// 4. Initialize tracker components
	hist := history.NewLog(store, cfg.MaxHistory, logger)
	ldg := ledger.New(store, hist, cfg.MaxWatching, cfg.ListCacheTTL, logger)
	logger.Info("Tracker initialized")

	// 5. Initialize scheduler
	sched := scheduler.NewScheduler(ldg, hist, cfg.SessionMaxIdle, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 6. Initialize HTTP server
	server := api.NewServer(cfg, ldg, hist, logger)

	// Start server in goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 7. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Gowatcharr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Gowatcharr stopped")
	return nil
}
