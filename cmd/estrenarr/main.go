package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/estrenarr/estrenarr/internal/api"
	"github.com/estrenarr/estrenarr/internal/config"
	"github.com/estrenarr/estrenarr/internal/controllers"
	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/estrenarr/estrenarr/internal/scheduler"
	"github.com/estrenarr/estrenarr/internal/services/catalog"
	"github.com/estrenarr/estrenarr/internal/services/tmdb"
	"github.com/estrenarr/estrenarr/internal/services/watchmode"
	"github.com/estrenarr/estrenarr/internal/utils"
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
	logger.Info("Starting Estrenarr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Resolve the market time zone
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	// 4. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile, loc)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 5. Initialize catalog sources
	tmdbClient, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize TMDb client: %w", err)
	}
	logger.Info("TMDb client initialized")

	sources := []catalog.Lister{tmdbClient}
	if cfg.WatchmodeAPIKey != "" {
		watchmodeClient, err := watchmode.NewClient(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Watchmode client: %w", err)
		}
		sources = append(sources, watchmodeClient)
		logger.Info("Watchmode fallback client initialized")
	}
	chain := catalog.NewChain(logger, sources...)

	// 6. Initialize sync controller
	syncCtrl := controllers.NewSyncController(db, chain, tmdbClient, cfg.SyncBudgetSeconds, cfg.RetentionDays, logger)
	logger.Info("Sync controller initialized")

	// 7. Initialize scheduler
	sched := scheduler.NewScheduler(syncCtrl, db, loc, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(cfg, db, syncCtrl, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Estrenarr is running")

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

	logger.Info("Estrenarr stopped")
	return nil
}
