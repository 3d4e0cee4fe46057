package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/estrenarr/estrenarr/internal/api/handlers"
	"github.com/estrenarr/estrenarr/internal/api/middleware"
	"github.com/estrenarr/estrenarr/internal/config"
	"github.com/estrenarr/estrenarr/internal/controllers"
	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	db       *models.Database
	syncCtrl *controllers.SyncController
	logger   *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, syncCtrl *controllers.SyncController, logger *logrus.Logger) *Server {
	s := &Server{
		db:       db,
		syncCtrl: syncCtrl,
		logger:   logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // sync triggers wait for the pass
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	statusHandler := handlers.NewStatusHandler(s.syncCtrl, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	contentHandler := handlers.NewContentHandler(s.db, s.logger)
	mux.HandleFunc("/api/content", contentHandler.List)
	mux.HandleFunc("/api/content/top", contentHandler.Top)
	mux.HandleFunc("/api/content/releases", contentHandler.Releases)

	syncHandler := handlers.NewSyncHandler(s.syncCtrl, s.logger)
	mux.HandleFunc("/api/sync", syncHandler.ServeHTTP)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
